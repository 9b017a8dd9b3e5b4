// ABOUTME: Backend selection for the credential store
// ABOUTME: Maps the configured backend name to a Store implementation

package credentials

import "fmt"

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend string
	Path    string
	// Encrypt seals the file backend with a key held in the OS keychain.
	Encrypt bool
}

// Open builds the Store named by opts.Backend. An empty backend means "file".
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		if !opts.Encrypt {
			return NewFileStore(opts.Path)
		}
		key, err := SealKey("")
		if err != nil {
			return nil, fmt.Errorf("loading seal key: %w", err)
		}
		return NewSealedFileStore(opts.Path, key)
	case BackendSQLite:
		return NewSQLiteStore(opts.Path)
	case BackendKeyring:
		return NewKeyringStore(""), nil
	case BackendMemory:
		return NewMemoryStore(Pair{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
