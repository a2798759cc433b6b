package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"importrag/internal/adapter/cache"
	"importrag/internal/adapter/chunker"
	"importrag/internal/adapter/embedding"
	"importrag/internal/adapter/fs"
	"importrag/internal/adapter/store"
	"importrag/internal/usecase"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestHandler(t *testing.T, dense bool) http.Handler {
	t.Helper()
	sparse := usecase.NewSparseEngine(chunker.NewWindowChunker(600, 80))
	qc := cache.NewQueryCache(16, time.Minute)
	sparse.OnChange(qc.Invalidate)

	engines := Engines{
		Knowledge:      usecase.NewKnowledgeBase(filepath.Join(t.TempDir(), "kb"), fs.NewWalker([]string{"*.txt"}, nil), sparse),
		Sparse:         sparse,
		SparseRetrieve: usecase.NewRetrieveUseCase(sparse, qc, 0),
	}

	if dense {
		emb := embedding.NewMockEmbedder(64)
		col, err := store.OpenCollection(filepath.Join(t.TempDir(), "c.db"), emb.Dimension())
		require.NoError(t, err)
		t.Cleanup(func() { col.Close() })
		engines.Dense = usecase.NewDenseEngine(col, emb, nil, chunker.NewWindowChunker(900, 150), usecase.DenseOptions{ReplaceStale: true})
		engines.DenseRetrieve = usecase.NewRetrieveUseCase(engines.Dense, nil, 0)
	}

	return NewServer(DefaultServerConfig(), engines).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (int, envelope) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr.Code, env
}

func uploadRequest(t *testing.T, filename, content, engine string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if engine != "" {
		require.NoError(t, mw.WriteField("engine", engine))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, false)

	code, env := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.DenseEnabled)
}

func TestIngestListAndQuery(t *testing.T) {
	h := newTestHandler(t, false)

	code, env := do(t, h, uploadRequest(t, "toys.txt", "Toys for children require BIS safety certification.", ""))
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = do(t, h, uploadRequest(t, "solar.txt", "Solar photovoltaic modules fall under heading 8541.", ""))
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, h, httptest.NewRequest(http.MethodGet, "/kb_list", nil))
	require.Equal(t, http.StatusOK, code)
	var list kbListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, []string{"solar.txt", "toys.txt"}, list.Files)

	code, env = do(t, h, jsonRequest("/query", `{"product_description":"plastic toys for children","country_of_origin":"China"}`))
	require.Equal(t, http.StatusOK, code, env.Message)
	var packed struct {
		Query     string `json:"query"`
		Citations []struct {
			Source  string  `json:"source"`
			Score   float64 `json:"score"`
			Snippet string  `json:"snippet"`
		} `json:"citations"`
		Preview []string `json:"rag_context_preview"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &packed))
	assert.Equal(t, "plastic toys for children\nOrigin: China", packed.Query)
	require.Len(t, packed.Citations, 1)
	assert.Equal(t, "toys.txt", packed.Citations[0].Source)
	assert.True(t, strings.HasSuffix(packed.Citations[0].Snippet, "..."))
	require.Len(t, packed.Preview, 1)
	assert.True(t, strings.HasPrefix(packed.Preview[0], "[toys.txt] "))
}

func TestIngestRejectsNonText(t *testing.T) {
	h := newTestHandler(t, false)

	code, env := do(t, h, uploadRequest(t, "spec.pdf", "%PDF", ""))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, ".txt")
}

func TestDenseRequiresEnabledEngine(t *testing.T) {
	h := newTestHandler(t, false)

	code, _ := do(t, h, uploadRequest(t, "a.txt", "text", "dense"))
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, h, jsonRequest("/search", `{"query":"text","engine":"dense"}`))
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, h, jsonRequest("/search", `{"query":"text","engine":"hybrid"}`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDenseIngestAndSearch(t *testing.T) {
	h := newTestHandler(t, true)

	code, env := do(t, h, uploadRequest(t, "motors.txt", "AC electric motors for pumps", "dense"))
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = do(t, h, uploadRequest(t, "motors.txt", "AC electric motors for pumps", "dense"))
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, h, uploadRequest(t, "notes.docx", "x", "dense"))
	assert.Equal(t, http.StatusBadRequest, code, env.Message)

	code, env = do(t, h, jsonRequest("/search", `{"query":"electric motors","k":3,"engine":"dense"}`))
	require.Equal(t, http.StatusOK, code, env.Message)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "motors.txt", resp.Results[0].Source)
	assert.Greater(t, resp.Results[0].Score, 0.0)
	assert.LessOrEqual(t, resp.Results[0].Score, 1.0)

	code, env = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.True(t, health.DenseEnabled)
	assert.Equal(t, 1, health.DenseEntries)
}

func TestSearchValidation(t *testing.T) {
	h := newTestHandler(t, false)

	code, _ := do(t, h, jsonRequest("/search", `{"query":""}`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, jsonRequest("/search", `{"query":"toys","k":-1}`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, jsonRequest("/search", `not json`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, jsonRequest("/query", `{"product_description":"  "}`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestResetAndRebuild(t *testing.T) {
	h := newTestHandler(t, false)

	code, _ := do(t, h, uploadRequest(t, "lamps.txt", "decorative LED lamps", ""))
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, jsonRequest("/reset", ``))
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, h, jsonRequest("/search", `{"query":"lamps"}`))
	require.Equal(t, http.StatusOK, code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Empty(t, resp.Results)

	code, env = do(t, h, jsonRequest("/rebuild", ``))
	require.Equal(t, http.StatusOK, code)
	var rebuilt rebuildResponse
	require.NoError(t, json.Unmarshal(env.Data, &rebuilt))
	assert.Equal(t, 1, rebuilt.Files)

	code, env = do(t, h, jsonRequest("/search", `{"query":"lamps"}`))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.Results, 1)
}

type offlineEmbedder struct{ *embedding.MockEmbedder }

func (offlineEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("encoder offline")
}

func TestDenseEmbeddingFailureIsBadGateway(t *testing.T) {
	emb := offlineEmbedder{embedding.NewMockEmbedder(64)}
	col, err := store.OpenCollection(filepath.Join(t.TempDir(), "c.db"), emb.Dimension())
	require.NoError(t, err)
	t.Cleanup(func() { col.Close() })

	sparse := usecase.NewSparseEngine(chunker.NewWindowChunker(600, 80))
	dense := usecase.NewDenseEngine(col, emb, nil, chunker.NewWindowChunker(900, 150), usecase.DenseOptions{})
	h := NewServer(DefaultServerConfig(), Engines{
		Knowledge:      usecase.NewKnowledgeBase(filepath.Join(t.TempDir(), "kb"), fs.NewWalker([]string{"*.txt"}, nil), sparse),
		Sparse:         sparse,
		SparseRetrieve: usecase.NewRetrieveUseCase(sparse, nil, 0),
		Dense:          dense,
		DenseRetrieve:  usecase.NewRetrieveUseCase(dense, nil, 0),
	}).Handler()

	code, env := do(t, h, jsonRequest("/search", `{"query":"electric motors","k":3,"engine":"dense"}`))
	assert.Equal(t, http.StatusBadGateway, code, env.Message)

	code, env = do(t, h, uploadRequest(t, "motors.txt", "AC electric motors", "dense"))
	assert.Equal(t, http.StatusBadGateway, code, env.Message)
}
