package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	applog "importrag/internal/platform/log"
)

// Extractor pulls plain text out of PDF bytes, one string per page.
// The bytes are spooled to a uniquely named temp file, removed once extraction ends.
type Extractor struct {
	tmpDir string
}

// NewExtractor uses tmpDir for spooled files, or the OS temp dir when empty.
func NewExtractor(tmpDir string) *Extractor {
	return &Extractor{tmpDir: tmpDir}
}

// ExtractPages returns text for every page in order. Pages that fail to extract are
// logged and come back empty, so index i is always page i+1.
func (e *Extractor) ExtractPages(data []byte) ([]string, error) {
	dir := e.tmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+".pdf")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("spool pdf: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			applog.Warn("failed to remove temp pdf", "path", path, "error", err)
		}
	}()

	return extract(path)
}

func extract(path string) (pages []string, err error) {
	defer func() {
		// malformed xref tables make the reader panic
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("open pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			applog.Warn("failed to extract page text", "page", i, "error", err)
			continue
		}
		pages[i-1] = strings.TrimSpace(text)
	}
	return pages, nil
}
