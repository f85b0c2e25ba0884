package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	models "supportkb/internal/domain/models/wiki"
)

// Metadata is the optional YAML frontmatter of an imported file.
// Missing fields are derived from the file name.
type Metadata struct {
	Title    string `yaml:"title"`
	Slug     string `yaml:"slug"`
	Summary  string `yaml:"summary"`
	Keywords string `yaml:"keywords"`
	Category string `yaml:"category"`
}

// ParseFrontmatter splits leading YAML frontmatter from the body.
// Files without a leading "---" line are returned unchanged with nil metadata.
//
// Expected format:
//
//	---
//	title: Clear cookies
//	category: troubleshooting
//	---
//	body
func ParseFrontmatter(content []byte) (*Metadata, []byte, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, content, nil
	}

	lines := bytes.Split(content, []byte("\n"))
	closing := 0
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			closing = i
			break
		}
	}
	if closing == 0 {
		return nil, nil, errors.New("missing closing frontmatter delimiter '---'")
	}

	var meta Metadata
	if err := yaml.Unmarshal(bytes.Join(lines[1:closing], []byte("\n")), &meta); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}

	return &meta, bytes.Join(lines[closing+1:], []byte("\n")), nil
}

// CategoryByName resolves a category by its String form
func CategoryByName(name string) (models.Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range models.Categories {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}
