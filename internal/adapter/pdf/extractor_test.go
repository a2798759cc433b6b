package pdf

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPagesRejectsInvalidPDF(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(dir)

	_, err := e.ExtractPages([]byte("definitely not a pdf"))
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed")
}

func TestExtractPagesEmptyInput(t *testing.T) {
	dir := t.TempDir()

	_, err := NewExtractor(dir).ExtractPages(nil)
	assert.Error(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
