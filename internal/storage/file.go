package storage

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
)

// FileStore persists each record key as <dir>/<key>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("storage: data dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// ReadRecord loads and validates the document for key. A file that is
// not valid JSON is renamed aside with a .broken_<timestamp> suffix and
// reported as absent.
func (f *FileStore) ReadRecord(key string) (json.RawMessage, bool, error) {
	path := f.pathFor(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if !json.Valid(data) {
		quarantine := path + ".broken_" + time.Now().UTC().Format("20060102_150405")
		if renameErr := os.Rename(path, quarantine); renameErr != nil {
			appLog.Error("storage: quarantine rename failed", renameErr, "key", key)
		}
		appLog.Error("storage: corrupt record quarantined", errors.New("invalid JSON"),
			"key", key, "quarantine", quarantine)
		return nil, false, nil
	}

	return json.RawMessage(data), true, nil
}

// WriteRecord marshals value and writes it atomically: temp file in the
// same directory, fsync, then rename over the target.
func (f *FileStore) WriteRecord(key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	path := f.pathFor(key)

	tmp, err := os.CreateTemp(f.dir, "."+key+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Backup copies every record file into backupDir with a timestamp
// suffix. Individual copy failures are logged; the first error is
// returned after all files were attempted.
func (f *FileStore) Backup(backupDir string) error {
	if backupDir == "" {
		return errors.New("storage: backup dir is empty")
	}
	if err := os.MkdirAll(backupDir, 0o700); err != nil {
		return err
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	var firstErr error
	copied := 0
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		dst := filepath.Join(backupDir, base+"_"+stamp+".json")
		if err := copyFile(filepath.Join(f.dir, name), dst); err != nil {
			appLog.Error("storage: backup copy failed", err, "file", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		copied++
	}

	appLog.Info("storage: backup created", "dir", backupDir, "files", copied, "stamp", stamp)
	return firstErr
}

func (f *FileStore) pathFor(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
