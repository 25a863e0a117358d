package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
)

// DefaultCollection is the alias queries are served from.
const DefaultCollection = "constitution"

const (
	upsertBatchSize = 100
	scrollPageSize  = 256
)

// QdrantConfig configures a QdrantStore.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Collection is the alias that always points at the serving collection.
	Collection string

	// HealthTimeout bounds the startup health retry. Zero means 30s.
	HealthTimeout time.Duration

	Logger *slog.Logger
}

// QdrantStore serves the index through a Qdrant alias. Every ReplaceAll
// writes a fresh versioned collection and repoints the alias in one
// UpdateAliases call, so searches never observe a partial index.
type QdrantStore struct {
	client *qdrant.Client
	alias  string
	logger *slog.Logger
}

// NewQdrantStore connects to Qdrant and waits until it reports healthy.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = 30 * time.Second
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create qdrant client: %w", domain.ErrDependencyUnavailable, err)
	}

	s := &QdrantStore{
		client: client,
		alias:  cfg.Collection,
		logger: cfg.Logger,
	}

	if err := s.healthCheckWithRetry(ctx, cfg.HealthTimeout); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrDependencyUnavailable, ErrQdrantUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context, maxElapsed time.Duration) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = maxElapsed

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return s.classify(err, "health check")
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("%w: health check returned invalid response", domain.ErrDependencyUnavailable)
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ReplaceAll builds a new collection named <alias>_<version>, fills it and
// switches the alias. A failure before the switch drops the new collection
// and leaves the old index serving; a failed switch leaves the alias in an
// unknown state and is reported as domain.ErrIndexCorrupted.
func (s *QdrantStore) ReplaceAll(ctx context.Context, records []domain.Record) error {
	dim, err := validateRecords(records)
	if err != nil {
		return err
	}

	name := versionName(s.alias, time.Now())

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %w", domain.ErrIndexWrite, name, err)
	}

	if err := s.fill(ctx, name, records); err != nil {
		s.dropCollection(ctx, name)
		return fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}

	previous, err := s.aliasTarget(ctx)
	if err != nil {
		s.dropCollection(ctx, name)
		return fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}

	ops := make([]*qdrant.AliasOperations, 0, 2)
	if previous != "" {
		ops = append(ops, qdrant.NewAliasDelete(s.alias))
	}
	ops = append(ops, qdrant.NewAliasCreate(s.alias, name))

	if err := s.client.UpdateAliases(ctx, ops); err != nil {
		return fmt.Errorf("%w: switch alias %s to %s: %w", domain.ErrIndexCorrupted, s.alias, name, err)
	}

	s.logger.Info("qdrant alias switched",
		"alias", s.alias,
		"collection", name,
		"previous", previous,
		"points", len(records))

	s.pruneVersions(ctx, name, previous)
	return nil
}

// versionName returns <alias>_<stamp>_<suffix>. The stamp is fixed-width hex
// nanoseconds, so versions of one alias sort by creation time.
func versionName(alias string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s_%016x_%s", alias, uint64(now.UnixNano()), suffix)
}

// versionStamp extracts the creation stamp of a versioned collection name.
func versionStamp(alias, name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, alias+"_")
	if !ok {
		return "", false
	}
	stamp, _, ok := strings.Cut(rest, "_")
	if !ok || len(stamp) != 16 {
		return "", false
	}
	return stamp, true
}

// staleVersions lists the versions that can be dropped after the alias moved
// from previous to current. previous stays until the next swap so searches
// already routed to it finish; anything newer than previous may be another
// writer's collection still being filled.
func staleVersions(alias string, collections []string, current, previous string) []string {
	cutoff, ok := versionStamp(alias, previous)
	if !ok {
		return nil
	}
	var stale []string
	for _, name := range collections {
		if name == current || name == previous {
			continue
		}
		if stamp, ok := versionStamp(alias, name); ok && stamp < cutoff {
			stale = append(stale, name)
		}
	}
	return stale
}

// fill upserts records in batches. Point ids follow storage order.
func (s *QdrantStore) fill(ctx context.Context, collection string, records []domain.Record) error {
	for i := 0; i < len(records); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(records))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			r := records[j]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(j) + 1),
				Vectors: qdrant.NewVectors(r.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					fieldContent:     r.Content,
					fieldPartNo:      r.Metadata.PartNo,
					fieldPartName:    r.Metadata.PartName,
					fieldArticleNo:   r.Metadata.ArticleNo,
					fieldArticleName: r.Metadata.ArticleName,
					fieldSeq:         j,
				}),
			})
		}

		if err := s.upsertWithRetry(ctx, collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// aliasTarget returns the collection the alias points at, or "" if the
// alias does not exist yet.
func (s *QdrantStore) aliasTarget(ctx context.Context) (string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == s.alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// pruneVersions drops versions older than previous. Failures are logged
// only; the alias already serves current.
func (s *QdrantStore) pruneVersions(ctx context.Context, current, previous string) {
	if previous == "" {
		return
	}
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		s.logger.Warn("failed to list collections for pruning", "error", err)
		return
	}
	for _, name := range staleVersions(s.alias, collections, current, previous) {
		s.dropCollection(ctx, name)
	}
}

// retryAfterSwap runs fn once more when it fails with NotFound while the
// alias exists: the version it was routed to was dropped mid-call. NotFound
// with no alias at all means nothing was indexed yet and is reported as
// missing.
func retryAfterSwap[T any](ctx context.Context, target func(context.Context) (string, error), fn func() (T, error)) (T, bool, error) {
	v, err := fn()
	if err == nil || !isNotFound(err) {
		return v, false, err
	}

	current, terr := target(ctx)
	if terr != nil {
		var zero T
		return zero, false, terr
	}
	if current == "" {
		var zero T
		return zero, true, nil
	}

	v, err = fn()
	return v, false, err
}

func (s *QdrantStore) dropCollection(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.client.DeleteCollection(ctx, name); err != nil {
		s.logger.Warn("failed to delete collection", "collection", name, "error", err)
	}
}

// Search queries the serving alias. Qdrant orders by score only, so results
// are re-sorted with point id as tiebreaker.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k, fetchK int) ([]domain.ScoredPassage, error) {
	k, fetchK = clampFetch(k, fetchK)
	if k == 0 {
		return []domain.ScoredPassage{}, nil
	}

	results, missing, err := retryAfterSwap(ctx, s.aliasTarget, func() ([]*qdrant.ScoredPoint, error) {
		return s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.alias,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(fetchK)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
	})
	if err != nil {
		return nil, s.classify(err, "search")
	}
	if missing {
		return []domain.ScoredPassage{}, nil
	}

	slices.SortStableFunc(results, func(a, b *qdrant.ScoredPoint) int {
		if c := cmp.Compare(b.GetScore(), a.GetScore()); c != 0 {
			return c
		}
		return cmp.Compare(a.GetId().GetNum(), b.GetId().GetNum())
	})

	if len(results) > k {
		results = results[:k]
	}

	scored := make([]domain.ScoredPassage, 0, len(results))
	for _, r := range results {
		scored = append(scored, domain.ScoredPassage{
			Passage: passageFromPayload(r.GetPayload()),
			Score:   float64(r.GetScore()),
		})
	}
	return scored, nil
}

// LexicalSearch scrolls the serving collection in id order and matches
// content client-side. Qdrant's full-text filter tokenizes, which would not
// give literal substring semantics. The alias is resolved once so every page
// comes from the same version.
func (s *QdrantStore) LexicalSearch(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	if query == "" || limit <= 0 {
		return []domain.Passage{}, nil
	}

	out, missing, err := retryAfterSwap(ctx, s.aliasTarget, func() ([]domain.Passage, error) {
		collection, err := s.aliasTarget(ctx)
		if err != nil {
			return nil, err
		}
		if collection == "" {
			return nil, status.Error(codes.NotFound, "alias "+s.alias+" not found")
		}
		return s.scan(ctx, collection, literalMatcher(query), limit)
	})
	if err != nil {
		return nil, s.classify(err, "lexical search")
	}
	if missing {
		return []domain.Passage{}, nil
	}
	return out, nil
}

func (s *QdrantStore) scan(ctx context.Context, collection string, re *regexp.Regexp, limit int) ([]domain.Passage, error) {
	out := []domain.Passage{}
	var offset *qdrant.PointId

	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return nil, err
		}

		for _, p := range points {
			passage := passageFromPayload(p.GetPayload())
			if re.MatchString(passage.Content) {
				out = append(out, passage)
				if len(out) == limit {
					return out, nil
				}
			}
		}

		if len(points) < scrollPageSize {
			return out, nil
		}
		// Scroll offsets are inclusive.
		offset = qdrant.NewIDNum(points[len(points)-1].GetId().GetNum() + 1)
	}
}

// Count returns the number of points behind the alias.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, _, err := retryAfterSwap(ctx, s.aliasTarget, func() (uint64, error) {
		return s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.alias,
			Exact:          qdrant.PtrOf(true),
		})
	})
	if err != nil {
		return 0, s.classify(err, "count")
	}
	return int(n), nil
}

func passageFromPayload(payload map[string]*qdrant.Value) domain.Passage {
	return domain.Passage{
		Content: payload[fieldContent].GetStringValue(),
		Metadata: domain.Metadata{
			PartNo:      payload[fieldPartNo].GetStringValue(),
			PartName:    payload[fieldPartName].GetStringValue(),
			ArticleNo:   payload[fieldArticleNo].GetStringValue(),
			ArticleName: payload[fieldArticleName].GetStringValue(),
		},
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// classify wraps transport failures as domain.ErrDependencyUnavailable.
// Context errors are returned as-is so callers can tell timeouts apart.
func (s *QdrantStore) classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("qdrant %s: %w", op, context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("qdrant %s: %w", op, context.Canceled)
	}
	return fmt.Errorf("%w: qdrant %s: %w", domain.ErrDependencyUnavailable, op, err)
}
