// Package lockfile implements rmmvlt.lock, a lock file that tracks MD5
// checksums of the game data files the strings file was extracted from.
//
// Context paths are only meaningful against the document they were read
// from. When a project is edited in RPG Maker between extraction and
// patching, event lists shift and a recorded path can land on a different
// command. With strict patching enabled, a document whose checksum no
// longer matches the lock is refused instead of being patched.
//
// The lock file is stored in the project root as rmmvlt.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "rmmvlt.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the rmmvlt.lock file structure.
type LockFile struct {
	Version   int               `yaml:"version"`
	Documents map[string]string `yaml:"documents"` // relative file -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Documents: make(map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}
	if lf.Documents == nil {
		lf.Documents = make(map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a document's bytes.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// DocumentKey normalizes a relative document path to forward slashes.
func DocumentKey(file string) string {
	return filepath.ToSlash(file)
}

// Record stores the checksum of a document's current contents.
func (lf *LockFile) Record(file string, data []byte) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	lf.Documents[DocumentKey(file)] = Hash(data)
}

// Verify compares a document against its recorded checksum. known is false
// when the document was never recorded; ok is true when the checksum
// matches (or the document is unknown).
func (lf *LockFile) Verify(file string, data []byte) (known, ok bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	sum, found := lf.Documents[DocumentKey(file)]
	if !found {
		return false, true
	}
	return true, sum == Hash(data)
}

// Forget removes the checksum of a document.
func (lf *LockFile) Forget(file string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Documents, DocumentKey(file))
}

// Clean removes documents that are no longer in files.
func (lf *LockFile) Clean(files []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(files))
	for _, f := range files {
		valid[DocumentKey(f)] = true
	}
	for k := range lf.Documents {
		if !valid[k] {
			delete(lf.Documents, k)
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Files returns the sorted list of recorded documents.
func (lf *LockFile) Files() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	files := make([]string, 0, len(lf.Documents))
	for f := range lf.Documents {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	files := lf.Files()
	if len(files) == 0 {
		return "empty"
	}
	if len(files) > 3 {
		return fmt.Sprintf("%d documents (%s, ...)", len(files), strings.Join(files[:3], ", "))
	}
	return fmt.Sprintf("%d documents (%s)", len(files), strings.Join(files, ", "))
}
