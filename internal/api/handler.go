package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"importrag/internal/domain"
	"importrag/internal/usecase"
	applog "importrag/internal/platform/log"
)

const (
	engineSparse = "sparse"
	engineDense  = "dense"
)

type Handler struct {
	engines   Engines
	maxFileMB int
	topK      int
}

func NewHandler(engines Engines, maxFileMB, topK int) *Handler {
	if maxFileMB <= 0 {
		maxFileMB = 20
	}
	if topK <= 0 {
		topK = 5
	}
	return &Handler{
		engines:   engines,
		maxFileMB: maxFileMB,
		topK:      topK,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/kb_list", h.KBList)
	r.Post("/ingest", h.Ingest)
	r.Post("/query", h.Query)
	r.Post("/search", h.Search)
	r.Post("/reset", h.Reset)
	r.Post("/rebuild", h.Rebuild)
}

type healthResponse struct {
	Status       string       `json:"status"`
	Sparse       domain.Stats `json:"sparse"`
	DenseEnabled bool         `json:"dense_enabled"`
	DenseEntries int          `json:"dense_entries,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Sparse: h.engines.Sparse.Stats(),
	}
	if h.engines.Dense != nil {
		resp.DenseEnabled = true
		n, err := h.engines.Dense.Count()
		if err != nil {
			applog.Warn("collection count failed", "error", err)
		}
		resp.DenseEntries = n
	}
	writeJSON(w, http.StatusOK, resp)
}

type kbListResponse struct {
	Count int      `json:"count"`
	Files []string `json:"files"`
}

func (h *Handler) KBList(w http.ResponseWriter, r *http.Request) {
	files, err := h.engines.Knowledge.List()
	if err != nil {
		applog.Error("knowledge base listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list knowledge base")
		return
	}
	writeJSON(w, http.StatusOK, kbListResponse{Count: len(files), Files: files})
}

type ingestResponse struct {
	Engine     string `json:"engine"`
	File       string `json:"file"`
	Chunks     int    `json:"chunks,omitempty"`
	TotalFiles int    `json:"total_files,omitempty"`
	Message    string `json:"message"`
}

// Ingest accepts a multipart upload in field "file". The "engine" form value picks the
// target: sparse (default) stores a .txt file in the knowledge base, dense embeds a .txt or
// .pdf file into the collection.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	limitBytes := int64(h.maxFileMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limitBytes+1<<20)

	if err := r.ParseMultipartForm(limitBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > limitBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size exceeds limit (%dMB)", h.maxFileMB))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "uploaded.txt"
	}

	engine, ok := h.engineParam(w, r.FormValue("engine"))
	if !ok {
		return
	}

	switch engine {
	case engineDense:
		n, err := h.engines.Dense.Ingest(r.Context(), data, usecase.SanitizeName(filename))
		if err != nil {
			h.fail(w, "dense ingest", err)
			return
		}
		writeJSON(w, http.StatusOK, ingestResponse{
			Engine:  engine,
			File:    filename,
			Chunks:  n,
			Message: fmt.Sprintf("Embedded %d chunks from %s", n, filename),
		})

	default:
		if !strings.EqualFold(filepath.Ext(filename), ".txt") {
			writeError(w, http.StatusBadRequest, "only .txt files can be added to the knowledge base")
			return
		}
		name, total, err := h.engines.Knowledge.Save(filename, data)
		if err != nil {
			h.fail(w, "knowledge base ingest", err)
			return
		}
		writeJSON(w, http.StatusOK, ingestResponse{
			Engine:     engine,
			File:       name,
			TotalFiles: total,
			Message:    fmt.Sprintf("Saved + indexed: %s. Total knowledge files: %d", name, total),
		})
	}
}

type queryRequest struct {
	usecase.ProductQuery
	TopK   int    `json:"top_k,omitempty"`
	Engine string `json:"engine,omitempty"`
}

// Query composes a product query and answers with citations and a context preview.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "product_description is required")
		return
	}

	retrieve, engine, ok := h.retrieverFor(w, req.Engine)
	if !ok {
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = h.topK
	}

	q := req.Text()
	results, err := retrieve.Retrieve(r.Context(), q, topK)
	if err != nil {
		h.fail(w, engine+" query", err)
		return
	}

	writeJSON(w, http.StatusOK, usecase.Pack(q, results))
}

type searchRequest struct {
	Query  string `json:"query"`
	K      int    `json:"k,omitempty"`
	Engine string `json:"engine,omitempty"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Engine  string             `json:"engine"`
	Results []domain.SearchHit `json:"results"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	retrieve, engine, ok := h.retrieverFor(w, req.Engine)
	if !ok {
		return
	}

	k := req.K
	if k == 0 {
		k = h.topK
	}

	results, err := retrieve.Retrieve(r.Context(), req.Query, k)
	if err != nil {
		h.fail(w, engine+" search", err)
		return
	}

	hits := make([]domain.SearchHit, 0, len(results))
	for _, sc := range results {
		hits = append(hits, sc.Hit())
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Engine: engine, Results: hits})
}

// Reset empties the in-memory sparse corpus. Files on disk are kept; /rebuild reloads them.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.engines.Sparse.Reset()
	writeJSON(w, http.StatusOK, h.engines.Sparse.Stats())
}

type rebuildResponse struct {
	Files  int      `json:"files"`
	Chunks int      `json:"chunks"`
	Errors []string `json:"errors,omitempty"`
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	result, err := h.engines.Knowledge.Rebuild(nil)
	if err != nil {
		h.fail(w, "rebuild", err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{
		Files:  result.Files,
		Chunks: result.Chunks,
		Errors: result.Errors,
	})
}

func (h *Handler) engineParam(w http.ResponseWriter, engine string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", engineSparse:
		return engineSparse, true
	case engineDense:
		if h.engines.Dense == nil {
			writeError(w, http.StatusServiceUnavailable, "dense engine not enabled")
			return "", false
		}
		return engineDense, true
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown engine %q (expected sparse or dense)", engine))
		return "", false
	}
}

func (h *Handler) retrieverFor(w http.ResponseWriter, engine string) (*usecase.RetrieveUseCase, string, bool) {
	name, ok := h.engineParam(w, engine)
	if !ok {
		return nil, "", false
	}
	if name == engineDense {
		return h.engines.DenseRetrieve, name, true
	}
	return h.engines.SparseRetrieve, name, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.Error(op+" failed", "error", err)
	}
	writeError(w, status, err.Error())
}
