// Package status records the outcome of the last installation run per
// project so later invocations can report it.
package status

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the status file written inside the config directory.
const FileName = "status.yaml"

// Phase is the coarse state of a project's installation.
type Phase string

const (
	PhaseInstalling Phase = "installing"
	PhaseVerifying  Phase = "verifying"
	PhaseVerified   Phase = "verified"
	PhaseFailed     Phase = "failed"
)

// Entry is the recorded status of one project.
type Entry struct {
	ProjectID string    `json:"project_id" yaml:"project_id"`
	RunID     string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Client    string    `json:"client,omitempty" yaml:"client,omitempty"`
	Phase     Phase     `json:"phase" yaml:"phase"`
	Tools     []string  `json:"tools,omitempty" yaml:"tools,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ErrNotFound is returned by Get for projects without a recorded status.
var ErrNotFound = errors.New("no status recorded for project")

// Store persists Entries keyed by project ID.
type Store interface {
	// Reset starts a new run for projectID, discarding prior state.
	Reset(projectID, runID, client string) error
	SetVerifying(projectID string) error
	SetVerified(projectID string, tools []string) error
	SetFailed(projectID, message string) error
	Get(projectID string) (Entry, error)
	List() ([]Entry, error)
}

type entries map[string]Entry

func (e entries) update(projectID string, now time.Time, fn func(*Entry)) {
	entry, ok := e[projectID]
	if !ok {
		entry = Entry{ProjectID: projectID}
	}
	fn(&entry)
	entry.UpdatedAt = now
	e[projectID] = entry
}

func (e entries) sorted() []Entry {
	list := make([]Entry, 0, len(e))
	for _, entry := range e {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ProjectID < list[j].ProjectID
	})
	return list
}

func reset(runID, client string) func(*Entry) {
	return func(e *Entry) {
		*e = Entry{ProjectID: e.ProjectID, RunID: runID, Client: client, Phase: PhaseInstalling}
	}
}

func verifying(e *Entry) {
	e.Phase = PhaseVerifying
	e.Tools = nil
	e.Error = ""
}

func verified(tools []string) func(*Entry) {
	return func(e *Entry) {
		e.Phase = PhaseVerified
		e.Tools = append([]string(nil), tools...)
		e.Error = ""
	}
}

func failed(message string) func(*Entry) {
	return func(e *Entry) {
		e.Phase = PhaseFailed
		e.Error = message
	}
}

// MemoryStore keeps statuses in memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries entries
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: entries{}, now: time.Now}
}

func (s *MemoryStore) apply(projectID string, fn func(*Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.update(projectID, s.now(), fn)
	return nil
}

func (s *MemoryStore) Reset(projectID, runID, client string) error {
	return s.apply(projectID, reset(runID, client))
}

func (s *MemoryStore) SetVerifying(projectID string) error {
	return s.apply(projectID, verifying)
}

func (s *MemoryStore) SetVerified(projectID string, tools []string) error {
	return s.apply(projectID, verified(tools))
}

func (s *MemoryStore) SetFailed(projectID, message string) error {
	return s.apply(projectID, failed(message))
}

func (s *MemoryStore) Get(projectID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[projectID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return entry, nil
}

func (s *MemoryStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.sorted(), nil
}

// FileStore keeps statuses in a YAML file. Every call reads and rewrites the
// whole file.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore returns a store backed by FileName inside configDir.
func NewFileStore(configDir string) *FileStore {
	return &FileStore{path: filepath.Join(configDir, FileName), now: time.Now}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (entries, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var file struct {
		Projects []Entry `yaml:"projects"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}

	loaded := entries{}
	for _, entry := range file.Projects {
		loaded[entry.ProjectID] = entry
	}
	return loaded, nil
}

func (s *FileStore) save(e entries) error {
	data, err := yaml.Marshal(map[string]any{"projects": e.sorted()})
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

func (s *FileStore) apply(projectID string, fn func(*Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load()
	if err != nil {
		return err
	}
	e.update(projectID, s.now(), fn)
	return s.save(e)
}

func (s *FileStore) Reset(projectID, runID, client string) error {
	return s.apply(projectID, reset(runID, client))
}

func (s *FileStore) SetVerifying(projectID string) error {
	return s.apply(projectID, verifying)
}

func (s *FileStore) SetVerified(projectID string, tools []string) error {
	return s.apply(projectID, verified(tools))
}

func (s *FileStore) SetFailed(projectID, message string) error {
	return s.apply(projectID, failed(message))
}

func (s *FileStore) Get(projectID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	entry, ok := e[projectID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return entry, nil
}

func (s *FileStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load()
	if err != nil {
		return nil, err
	}
	return e.sorted(), nil
}
