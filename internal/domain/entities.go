package domain

// Chunk is a bounded window of an ingested document. Page is nil for pageless sources.
type Chunk struct {
	ID     string
	Text   string
	Source string
	Page   *int
	Seq    int
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SearchHit is the wire form of a ScoredChunk.
type SearchHit struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Page   *int    `json:"page,omitempty"`
	Score  float64 `json:"score"`
}

func (s ScoredChunk) Hit() SearchHit {
	return SearchHit{
		Text:   s.Chunk.Text,
		Source: s.Chunk.Source,
		Page:   s.Chunk.Page,
		Score:  s.Score,
	}
}

type Citation struct {
	Source  string  `json:"source"`
	Page    *int    `json:"page,omitempty"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type PackedContext struct {
	Query          string     `json:"query"`
	Citations      []Citation `json:"citations"`
	ContextPreview []string   `json:"rag_context_preview"`
}

// Stats describes the in-memory sparse corpus.
type Stats struct {
	TotalChunks int      `json:"total_chunks"`
	TotalTerms  int      `json:"total_terms"`
	Sources     []string `json:"sources"`
}

// PageNumber returns a pointer suitable for Chunk.Page.
func PageNumber(n int) *int {
	return &n
}
