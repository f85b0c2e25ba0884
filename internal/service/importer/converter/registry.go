package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	wikiSvc "supportkb/internal/domain/services/wiki"
)

// Registry routes files to content converters by extension.
// Thread-safe for concurrent access.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]wikiSvc.ContentConverter // key: extension with leading dot
}

// NewRegistry creates a registry with the wiki, markdown, text and HTML converters registered
func NewRegistry() *Registry {
	registry := &Registry{
		converters: make(map[string]wikiSvc.ContentConverter),
	}

	registry.Register(NewWikiConverter())
	registry.Register(NewMarkdownConverter())
	registry.Register(NewHTMLConverter())

	return registry
}

// Register associates a converter with its extensions, normalized to
// lowercase with a leading dot. Later registrations win.
func (r *Registry) Register(converter wikiSvc.ContentConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range converter.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.converters[ext] = converter
	}
}

// GetConverter returns nil when no converter handles the extension
func (r *Registry) GetConverter(fileExt string) wikiSvc.ContentConverter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[strings.ToLower(fileExt)]
}

// Convert picks the converter for filename's extension
func (r *Registry) Convert(ctx context.Context, filename string, content []byte) (string, error) {
	ext := filepath.Ext(filename)
	converter := r.GetConverter(ext)
	if converter == nil {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
	return converter.Convert(ctx, content)
}

// SupportedExtensions returns the registered extensions, sorted
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
