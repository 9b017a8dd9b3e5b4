// ABOUTME: TOML file credential store with atomic replace and optional sealing
// ABOUTME: Sealed files hold base64(nonce || secretbox) instead of plain TOML

package credentials

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealBroken is returned when a sealed credentials file cannot be opened
// with the configured key.
var ErrSealBroken = errors.New("credentials file cannot be unsealed")

// FileStore persists the pair as a TOML document at path.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  *[32]byte
}

// NewFileStore creates a FileStore at path. A leading "~/" is expanded to
// the user's home directory.
func NewFileStore(path string) (*FileStore, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: expanded}, nil
}

// NewSealedFileStore creates a FileStore whose contents are encrypted with key.
func NewSealedFileStore(path string, key *[32]byte) (*FileStore, error) {
	s, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}
	s.key = key
	return s, nil
}

// Path returns the resolved file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the pair from disk. A missing file yields a zero Pair.
func (s *FileStore) Load(_ context.Context) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Pair{}, nil
	}
	if err != nil {
		return Pair{}, fmt.Errorf("reading credentials file: %w", err)
	}

	if s.key != nil {
		data, err = s.open(data)
		if err != nil {
			return Pair{}, err
		}
	}

	var pair Pair
	if _, err := toml.Decode(string(data), &pair); err != nil {
		return Pair{}, fmt.Errorf("parsing credentials file: %w", err)
	}
	return pair, nil
}

// Save writes the pair to a temporary file and renames it into place.
func (s *FileStore) Save(_ context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(pair); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	data := buf.Bytes()
	if s.key != nil {
		sealed, err := s.seal(data)
		if err != nil {
			return err
		}
		data = sealed
	}

	return s.writeAtomic(data)
}

// Clear removes the credentials file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting credentials file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], plain, &nonce, s.key)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(box)))
	base64.StdEncoding.Encode(out, box)
	return append(out, '\n'), nil
}

func (s *FileStore) open(data []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(raw) < nonceSize {
		return nil, ErrSealBroken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, s.key)
	if !ok {
		return nil, ErrSealBroken
	}
	return plain, nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("credentials path is required")
	}
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
