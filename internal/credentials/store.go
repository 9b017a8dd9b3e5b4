// ABOUTME: Credential pair type and the storage port the gateway writes through
// ABOUTME: Backends must persist both tokens atomically under the fixed keys

package credentials

import (
	"context"
	"errors"
)

// Fixed storage keys for the credential pair.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown credentials backend")

// Pair is the bearer credential pair issued by the authentication endpoint.
type Pair struct {
	AccessToken  string `toml:"accessToken" json:"accessToken"`
	RefreshToken string `toml:"refreshToken" json:"refreshToken"`
}

// IsZero reports whether neither token is present.
func (p Pair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Store is the storage port for the credential pair.
// Load returns a zero Pair (and no error) when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Pair, error)
	Save(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}
