package retriever

import (
	"context"
	"math"
	"sort"

	"importrag/internal/adapter/analyzer"
	"importrag/internal/domain"
)

type termWeight struct {
	term   int
	weight float64
}

// sparseVector holds non-zero weights ordered by term index.
type sparseVector []termWeight

// TFIDFIndex is a term-frequency/inverse-document-frequency vector space over a chunk corpus.
// It is not safe for concurrent Fit and Search; callers serialize access.
type TFIDFIndex struct {
	tokenizer *analyzer.Tokenizer
	vocab     map[string]int
	idf       []float64
	rows      []sparseVector
	chunks    []domain.Chunk
	fitted    bool
}

func NewTFIDFIndex(tokenizer *analyzer.Tokenizer) *TFIDFIndex {
	return &TFIDFIndex{tokenizer: tokenizer}
}

// Fit rebuilds the vocabulary and one weighted vector per chunk.
// Terms are indexed in sorted order so vector dimensions are stable across rebuilds.
// An empty corpus leaves the index unfitted.
func (x *TFIDFIndex) Fit(chunks []domain.Chunk) {
	if len(chunks) == 0 {
		x.Reset()
		return
	}

	tokenized := make([][]string, len(chunks))
	df := make(map[string]int)
	for i, c := range chunks {
		tokens := x.tokenizer.Tokenize(c.Text)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(chunks))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	x.vocab = vocab
	x.idf = idf
	x.rows = make([]sparseVector, len(chunks))
	for i, tokens := range tokenized {
		x.rows[i] = x.weigh(tokens)
	}
	x.chunks = append([]domain.Chunk(nil), chunks...)
	x.fitted = true
}

// Transform vectorizes text against the fitted vocabulary. Unknown terms carry no weight.
func (x *TFIDFIndex) Transform(text string) sparseVector {
	if !x.fitted {
		return nil
	}
	return x.weigh(x.tokenizer.Tokenize(text))
}

// weigh turns tokens into an L2-normalised tf*idf vector.
func (x *TFIDFIndex) weigh(tokens []string) sparseVector {
	tf := make(map[int]int)
	for _, tok := range tokens {
		if idx, ok := x.vocab[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return nil
	}

	vec := make(sparseVector, 0, len(tf))
	norm := 0.0
	for idx, count := range tf {
		w := float64(count) * x.idf[idx]
		vec = append(vec, termWeight{term: idx, weight: w})
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].weight /= norm
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].term < vec[j].term })
	return vec
}

// Search scores every chunk by dot product with the query vector and returns the top k
// with a non-zero score. Ties keep corpus order.
func (x *TFIDFIndex) Search(_ context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if !x.fitted || len(x.chunks) == 0 || k <= 0 {
		return nil, nil
	}

	q := x.Transform(query)
	if len(q) == 0 {
		return nil, nil
	}

	results := make([]domain.ScoredChunk, 0)
	for i, row := range x.rows {
		score := dot(row, q)
		if score == 0 {
			continue
		}
		results = append(results, domain.ScoredChunk{
			Chunk: x.chunks[i],
			Score: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Reset drops the fitted state; searches return nothing until the next Fit.
func (x *TFIDFIndex) Reset() {
	x.vocab = nil
	x.idf = nil
	x.rows = nil
	x.chunks = nil
	x.fitted = false
}

func (x *TFIDFIndex) Fitted() bool { return x.fitted }

func (x *TFIDFIndex) VocabularySize() int { return len(x.vocab) }

// dot multiplies two sparse vectors merged by term index.
func dot(a, b sparseVector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].term == b[j].term:
			sum += a[i].weight * b[j].weight
			i++
			j++
		case a[i].term < b[j].term:
			i++
		default:
			j++
		}
	}
	return sum
}
