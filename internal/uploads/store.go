package uploads

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Store mirrors CRM file columns onto local disk, one file per attachment
// slot per account.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes data under a deterministic name derived from the attachment
// slot and record id, overwriting any previous mirror, and returns the path.
func (s *Store) Save(name, recordID string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create mirror dir %s", s.dir)
	}
	path := s.Path(name, recordID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// Path returns the mirror location for an attachment slot without touching
// disk.
func (s *Store) Path(name, recordID string) string {
	return filepath.Join(s.dir, name+"_"+recordID+".pdf")
}
