// Package domain holds the types shared by the indexing and answering pipelines
// together with the error taxonomy every layer wraps its failures in.
package domain

// Metadata is the back-reference from a chunk to the article it was cut from.
// It is used for citation and display only, never for lookups.
type Metadata struct {
	PartNo      string `json:"partNo"`
	PartName    string `json:"partName"`
	ArticleNo   string `json:"articleNo"`
	ArticleName string `json:"articleName"`
}

// Passage is a bounded slice of corpus text plus its metadata.
type Passage struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Record is a passage with its embedding, as persisted by the index store.
type Record struct {
	Passage
	Embedding []float32
}

// ScoredPassage is one element of a retrieval result.
type ScoredPassage struct {
	Passage
	Score float64 `json:"score"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one caller-supplied chat history entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SourcePath tells the caller which path produced an answer.
type SourcePath string

const (
	SourceRetrieval       SourcePath = "retrieval"
	SourceLexicalFallback SourcePath = "lexicalFallback"
	SourceNoResults       SourcePath = "noResults"
)

// Contents returns the content of every passage, in order.
func Contents[P interface{ Text() string }](passages []P) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text()
	}
	return out
}

// Text returns the passage content.
func (p Passage) Text() string { return p.Content }
