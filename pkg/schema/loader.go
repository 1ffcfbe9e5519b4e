package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store holds definitions keyed by form id.
type Store struct {
	forms map[string]Definition
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{forms: make(map[string]Definition)}
}

// LoadFS walks fsys and parses every JSON/YAML definition document. When
// fsys is nil or holds no documents the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := NewStore()
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		return store.Parse(SourceFromFS(path), data)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Parse reads one document and registers its forms. Form ids must be unique
// across the store.
func (s *Store) Parse(src Source, data []byte) error {
	location := "inline"
	if src != nil {
		location = src.Location()
	}
	doc, err := parseDocument(data, location)
	if err != nil {
		return err
	}
	for rawID, def := range doc.Forms {
		id := strings.TrimSpace(rawID)
		if id == "" {
			return &DefinitionError{Source: location, Err: ErrEmptyFormID}
		}
		if _, exists := s.forms[id]; exists {
			return &DefinitionError{Source: location, Form: id, Err: ErrDuplicateForm}
		}
		def.ID = id
		def.Source = location
		s.forms[id] = def
	}
	return nil
}

// Parse reads a single document into a new store.
func Parse(src Source, data []byte) (*Store, error) {
	store := NewStore()
	if err := store.Parse(src, data); err != nil {
		return nil, err
	}
	return store, nil
}

// Definition returns the definition for id.
func (s *Store) Definition(id string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	def, ok := s.forms[id]
	return def, ok
}

// IDs returns the registered form ids, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any definitions.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

type documentFile struct {
	Forms map[string]Definition `json:"forms" yaml:"forms"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, &DefinitionError{Source: source, Err: ErrEmptyDocument}
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, &DefinitionError{Source: source, Err: fmt.Errorf("%w: %v", ErrInvalidDocument, err)}
	}
	return doc, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
