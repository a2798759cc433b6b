package port

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	Name    string
	ModTime int64
	Size    int64
}

// PageExtractor turns a paged document into plain text, one entry per page.
type PageExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}
