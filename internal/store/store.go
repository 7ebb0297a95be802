package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/models"
)

const indexFile = "index.json"

// IndexEntry is the catalog row kept for each saved macro, so listings
// never have to parse every macro file.
type IndexEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
	ActionCount int       `json:"actionCount"`
	DurationMs  int64     `json:"durationMs"`
}

// MacroStore persists macros as one JSON file per macro plus an index
// file, under a single directory. All methods are safe for concurrent use.
type MacroStore struct {
	dir    string
	mu     sync.Mutex
	logger zerolog.Logger
}

func NewMacroStore(dir string, logger zerolog.Logger) (*MacroStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create macro dir: %w", err)
	}
	return &MacroStore{dir: dir, logger: logger.With().Str("component", "store").Logger()}, nil
}

// Save validates and writes the macro, assigning an ID when it has none,
// and updates the index. Saving an existing ID overwrites it.
func (s *MacroStore) Save(macro *models.Macro) error {
	if macro.ID == "" {
		macro.ID = uuid.New().String()
	}
	if macro.CreatedAt.IsZero() {
		macro.CreatedAt = time.Now()
	}
	if err := macro.Validate(); err != nil {
		return fmt.Errorf("save macro: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := macro.MarshalIndent()
	if err != nil {
		return fmt.Errorf("encode macro: %w", err)
	}
	path := s.macroPath(macro.ID)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write macro: %w", err)
	}

	index, err := s.readIndex()
	if err != nil {
		return err
	}
	entry := IndexEntry{
		ID:          macro.ID,
		Name:        macro.Name,
		URL:         macro.URL,
		CreatedAt:   macro.CreatedAt,
		ActionCount: len(macro.Actions),
		DurationMs:  macro.DurationMs,
	}
	replaced := false
	for i := range index {
		if index[i].ID == macro.ID {
			index[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, entry)
	}
	if err := s.writeIndex(index); err != nil {
		return err
	}
	s.logger.Info().Str("macro_id", macro.ID).Str("name", macro.Name).
		Int("actions", len(macro.Actions)).Msg("macro saved")
	return nil
}

func (s *MacroStore) Load(id string) (*models.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.macroPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrMacroNotFound, id)
		}
		return nil, fmt.Errorf("read macro: %w", err)
	}
	var macro models.Macro
	if err := json.Unmarshal(data, &macro); err != nil {
		return nil, fmt.Errorf("decode macro %s: %w", id, err)
	}
	return &macro, nil
}

// List returns index entries ordered newest first.
func (s *MacroStore) List() ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	sort.Slice(index, func(i, j int) bool {
		return index[i].CreatedAt.After(index[j].CreatedAt)
	})
	return index, nil
}

func (s *MacroStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.macroPath(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", models.ErrMacroNotFound, id)
		}
		return fmt.Errorf("delete macro: %w", err)
	}

	index, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, entry := range index {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	if err := s.writeIndex(kept); err != nil {
		return err
	}
	s.logger.Info().Str("macro_id", id).Msg("macro deleted")
	return nil
}

func (s *MacroStore) macroPath(id string) string {
	// IDs come from uuid or user input; strip path separators either way.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
	return filepath.Join(s.dir, safe+".json")
}

func (s *MacroStore) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var index []IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return index, nil
}

func (s *MacroStore) writeIndex(index []IndexEntry) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, indexFile), data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
