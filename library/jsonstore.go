package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONStore keeps the whole library in a single JSON document.
type JSONStore struct {
	path string
}

type libraryDocument struct {
	Items   []itemRecord   `json:"items"`
	Patrons []patronRecord `json:"patrons"`
}

// NewJSONStore prepares a store at path. The file is created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &JSONStore{path: path}, nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) LoadItems() ([]*Item, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	items := make([]*Item, 0, len(doc.Items))
	for _, r := range doc.Items {
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *JSONStore) SaveItems(items []*Item) error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Items = make([]itemRecord, 0, len(items))
	for _, it := range items {
		doc.Items = append(doc.Items, recordFromItem(it))
	}
	return s.write(doc)
}

func (s *JSONStore) LoadPatrons() ([]*Patron, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	patrons := make([]*Patron, 0, len(doc.Patrons))
	for _, r := range doc.Patrons {
		patrons = append(patrons, r.patron())
	}
	return patrons, nil
}

func (s *JSONStore) SavePatrons(patrons []*Patron) error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Patrons = make([]patronRecord, 0, len(patrons))
	for _, p := range patrons {
		doc.Patrons = append(doc.Patrons, recordFromPatron(p))
	}
	return s.write(doc)
}

func (s *JSONStore) read() (*libraryDocument, error) {
	doc := &libraryDocument{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the document atomically via a temp file in the same directory.
func (s *JSONStore) write(doc *libraryDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".library-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
