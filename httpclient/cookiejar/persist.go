package cookiejar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/kbukum/anyhttp/encryption"
	"github.com/kbukum/anyhttp/logger"
)

const snapshotVersion = 1

type snapshot struct {
	Version int      `json:"version"`
	Cookies []Cookie `json:"cookies"`
}

// Save writes every persistent, unexpired cookie to w as JSON. Session
// cookies are never written.
func (j *Jar) Save(w io.Writer) error {
	snap := snapshot{Version: snapshotVersion, Cookies: []Cookie{}}
	for _, c := range j.All() {
		if c.Persistent {
			snap.Cookies = append(snap.Cookies, c)
		}
	}
	if err := json.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("cookiejar: encode: %w", err)
	}
	return nil
}

// Load merges cookies previously written by Save. Expired and session
// cookies are skipped.
func (j *Jar) Load(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("cookiejar: decode: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("cookiejar: unsupported snapshot version %d", snap.Version)
	}

	now := j.now()
	j.mu.Lock()
	defer j.mu.Unlock()
	loaded := 0
	for i := range snap.Cookies {
		c := snap.Cookies[i]
		if c.Name == "" || c.Domain == "" || !c.Persistent || c.Expired(now) {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		j.putLocked(&c)
		loaded++
	}
	j.purgeLocked(now)
	j.log.Debug("cookies loaded", logger.Fields("count", loaded))
	return nil
}

// SaveFile writes the persistent cookies to path, sealed by s when s is not
// nil. The file is replaced atomically with mode 0600.
func (j *Jar) SaveFile(path string, s encryption.Sealer) error {
	var buf bytes.Buffer
	if err := j.Save(&buf); err != nil {
		return err
	}
	data := buf.Bytes()
	if s != nil {
		sealed, err := s.Seal(data)
		if err != nil {
			return fmt.Errorf("cookiejar: seal: %w", err)
		}
		data = sealed
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cookies-*")
	if err != nil {
		return fmt.Errorf("cookiejar: save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cookiejar: save %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("cookiejar: save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cookiejar: save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("cookiejar: save %s: %w", path, err)
	}
	return nil
}

// LoadFile merges cookies from a file written by SaveFile with the same
// sealer. A missing file leaves the jar unchanged.
func (j *Jar) LoadFile(path string, s encryption.Sealer) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cookiejar: load %s: %w", path, err)
	}
	if s != nil {
		data, err = s.Open(data)
		if err != nil {
			return fmt.Errorf("cookiejar: load %s: %w", path, err)
		}
	}
	return j.Load(bytes.NewReader(data))
}
