package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery indicates a caller-supplied query that cannot be answered.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrCorpusLoad indicates the corpus source could not be read or parsed.
	ErrCorpusLoad = errors.New("corpus load failed")

	// ErrInvalidChunk indicates an empty text reached the embedding gateway.
	// This is a defect between the chunker and the embedder, not a user error.
	ErrInvalidChunk = errors.New("invalid chunk")

	ErrEmbeddingService  = errors.New("embedding service error")
	ErrGenerationService = errors.New("generation service error")

	// ErrIndexWrite indicates a failed write that left the previous index serving.
	ErrIndexWrite = errors.New("index write failed")

	// ErrIndexCorrupted indicates the index is in an unknown state. Writes must stop.
	ErrIndexCorrupted = errors.New("index corrupted")

	ErrTimeout               = errors.New("timeout")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrReindexInProgress indicates a reindex is already running.
	ErrReindexInProgress = errors.New("reindex in progress")

	ErrNotFound = errors.New("not found")
)

// InvalidChunkError identifies the offending position in an embedding batch.
type InvalidChunkError struct {
	Index int
}

func (e *InvalidChunkError) Error() string {
	return fmt.Sprintf("%v: text at index %d is empty", ErrInvalidChunk, e.Index)
}

func (e *InvalidChunkError) Is(target error) bool {
	return target == ErrInvalidChunk
}
