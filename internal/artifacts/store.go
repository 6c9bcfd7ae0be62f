package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Store persists prompts, raw responses, and annotated diffs under a root
// directory. Directory creation is lazy and idempotent; appends to a given
// path are serialized so concurrent per-file pipelines never interleave
// partial writes within one Persist call.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir. Nothing is created on disk until
// the first Persist.
func NewStore(dir string) *Store {
	return &Store{
		root:  dir,
		locks: make(map[string]*sync.Mutex),
	}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Persist writes content to relPath under the store root, creating missing
// directories. Content is normalized to end with exactly one trailing
// newline. With appendMode set, content is appended as a single write;
// otherwise the file is truncated. Returns the relative path written.
func (s *Store) Persist(relPath, content string, appendMode bool) (string, error) {
	fullPath := filepath.Join(s.root, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory for %s: %w", relPath, err)
	}

	data := []byte(strings.TrimRight(content, "\n") + "\n")

	lock := s.pathLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(fullPath, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", relPath, err)
	}
	defer f.Close()

	// One Write call per Persist keeps appends atomic at call granularity.
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", relPath, err)
	}

	return relPath, nil
}

// Read returns the content of a previously persisted artifact.
func (s *Store) Read(relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %s: %w", relPath, err)
	}
	return string(data), nil
}

func (s *Store) pathLock(fullPath string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[fullPath]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[fullPath] = lock
	}
	return lock
}

// Artifact kinds used by the strategies.
const (
	KindDiff      = "diffs"
	KindAnnotated = "annotated"
)

// SingleModePath is the aggregated artifact path for a kind: every file in a
// run appends to the same logical file.
func SingleModePath(kind string) string {
	switch kind {
	case KindAnnotated:
		return filepath.Join(KindAnnotated, "output.review.txt")
	default:
		return filepath.Join(KindDiff, "output.diff")
	}
}

// PerFilePath derives a deterministic, collision-free artifact path for one
// reviewed file. The hash covers both the path and the diff content, so two
// files sharing a basename get distinct artifacts while re-running the same
// input reproduces the same path.
func PerFilePath(kind, filePath, diffText string) string {
	sum := sha256.Sum256([]byte(filePath + "\n" + diffText))
	short := hex.EncodeToString(sum[:])[:8]

	ext := ".diff"
	if kind == KindAnnotated {
		ext = ".review.txt"
	}

	return filepath.Join(kind, fmt.Sprintf("%s-%s%s", short, SanitizeName(filepath.Base(filePath)), ext))
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName reduces a file basename to filesystem-safe characters.
func SanitizeName(name string) string {
	sanitized := unsafeNameRe.ReplaceAllString(name, "_")
	sanitized = strings.Trim(sanitized, "._")
	if sanitized == "" {
		return "file"
	}
	return sanitized
}
