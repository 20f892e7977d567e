package migration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"migplan/internal/core"
)

// ErrEmptyDir is returned when a store is opened without a directory.
var ErrEmptyDir = errors.New("migrations directory is empty")

const (
	// StateFile holds the snapshot of the last generated revision.
	StateFile = "_current.json"
	// Ext is the extension of migration scripts.
	Ext = ".mig"
)

var (
	slugRe     = regexp.MustCompile(`\W+`)
	fileNameRe = regexp.MustCompile(`^(\d+)(?:-(.*))?` + regexp.QuoteMeta(Ext) + `$`)
)

// State is the persisted result of the last generate run.
type State struct {
	Revision int            `json:"revision"`
	Snapshot *core.Snapshot `json:"snapshot"`
}

// Entry is a migration script found in the store.
type Entry struct {
	Revision int
	Name     string
	Path     string
}

// Store keeps migration scripts and the current state in one directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore opens the store in dir, creating the directory when needed.
func NewStore(fsys afero.Fs, dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrEmptyDir
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// ParseRevision parses a revision given as text.
func ParseRevision(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidRevision)
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRevision, text)
	}
	return n, nil
}

// FileName returns the script file name for info.
func FileName(info Info) string {
	slug := strings.Trim(slugRe.ReplaceAllString(info.Name, "_"), "_")
	if slug == "" {
		return strconv.Itoa(info.Revision) + Ext
	}
	return fmt.Sprintf("%d-%s%s", info.Revision, slug, Ext)
}

// Current returns the stored state. Without a state file it is revision 0
// with an empty snapshot.
func (s *Store) Current() (*State, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, StateFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &State{Snapshot: core.NewSnapshot()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.Revision < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRevision, st.Revision)
	}
	if st.Snapshot == nil {
		st.Snapshot = core.NewSnapshot()
	}
	return &st, nil
}

// Save writes the artifact script and records snapshot as the new current
// state. It returns the script path.
func (s *Store) Save(a *Artifact, snapshot *core.Snapshot) (string, error) {
	if a.Info.Revision < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidRevision, a.Info.Revision)
	}
	script, err := RenderScript(a)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, FileName(a.Info))
	if err := afero.WriteFile(s.fs, path, script, 0o644); err != nil {
		return "", fmt.Errorf("write migration: %w", err)
	}

	state, err := json.MarshalIndent(State{Revision: a.Info.Revision, Snapshot: snapshot}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, StateFile), state, 0o644); err != nil {
		return "", fmt.Errorf("write state: %w", err)
	}
	return path, nil
}

// List returns the scripts of the store ordered by revision.
func (s *Store) List() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var entries []Entry
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		m := fileNameRe.FindStringSubmatch(fi.Name())
		if m == nil {
			continue
		}
		rev, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Revision: rev, Name: m[2], Path: filepath.Join(s.dir, fi.Name())})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Revision < entries[j].Revision })
	return entries, nil
}

// Load reads and parses the script at path.
func (s *Store) Load(path string) (*Artifact, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read migration: %w", err)
	}
	a, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return a, nil
}

// Find returns the script with the given revision.
func (s *Store) Find(revision int) (*Artifact, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Revision == revision {
			return s.Load(e.Path)
		}
	}
	return nil, fmt.Errorf("migration revision %d not found in %s", revision, s.dir)
}
