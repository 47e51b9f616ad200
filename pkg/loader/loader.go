package loader

import (
	"context"
	"errors"
	"fmt"
)

type GraphFileType string

const (
	// GraphFileTypeDocument is a text document loaded through a GraphFileLoader.
	GraphFileTypeDocument GraphFileType = "document"
	// GraphFileTypeWeb is a news article or filing page fetched over HTTP.
	GraphFileTypeWeb GraphFileType = "web"
	// GraphFileTypeText carries its content inline.
	GraphFileTypeText GraphFileType = "text"
)

var ErrNoLoader = errors.New("graph file has no loader")

// GraphFile is one source document to be split into units and extracted
// into the graph.
//
// FilePath is a local path, an object key or a URL depending on the Loader.
// Text files carry their content in Content and need no Loader.
type GraphFile struct {
	ID        string
	Name      string
	FilePath  string
	FileType  GraphFileType
	MaxTokens int
	Content   string
	Loader    GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a GraphFile.
type NewGraphFileParams struct {
	ID        string
	Name      string
	FilePath  string
	MaxTokens int
	Loader    GraphFileLoader
}

func NewGraphDocumentFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:        params.ID,
		Name:      params.Name,
		FilePath:  params.FilePath,
		FileType:  GraphFileTypeDocument,
		MaxTokens: params.MaxTokens,
		Loader:    params.Loader,
	}
}

func NewGraphWebFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:        params.ID,
		Name:      params.Name,
		FilePath:  params.FilePath,
		FileType:  GraphFileTypeWeb,
		MaxTokens: params.MaxTokens,
		Loader:    params.Loader,
	}
}

// NewGraphTextFile creates a file whose content is already known, e.g. the
// body of an API request.
func NewGraphTextFile(params NewGraphFileParams, content string) GraphFile {
	return GraphFile{
		ID:        params.ID,
		Name:      params.Name,
		FilePath:  params.FilePath,
		FileType:  GraphFileTypeText,
		MaxTokens: params.MaxTokens,
		Content:   content,
	}
}

// GetText retrieves the raw text content of the file.
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.FileType == GraphFileTypeText {
		return []byte(f.Content), nil
	}
	if f.Loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, f.ID)
	}
	return f.Loader.GetFileText(ctx, *f)
}

// DisplayName returns Name, falling back to FilePath.
func (f *GraphFile) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.FilePath
}

// GraphFileLoader loads the contents of a GraphFile from disk, object
// storage or the web.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// CacheKey identifies the content of file for loader caches.
func CacheKey(file GraphFile) string {
	return fmt.Sprintf("%s:%s", file.FileType, file.FilePath)
}
