// ABOUTME: Login/logout service over the gateway's credential handling
// ABOUTME: Decodes token claims for status reporting

package api

import (
	"context"
	"fmt"

	"github.com/2389/predictera-console/internal/credentials"
)

// Authenticator is the subset of the gateway that manages credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Credentials(ctx context.Context) (credentials.Pair, error)
}

// AuthService logs users in and out.
type AuthService struct {
	auth Authenticator
}

// NewAuthService creates an AuthService.
func NewAuthService(auth Authenticator) *AuthService {
	return &AuthService{auth: auth}
}

// Login authenticates and stores the resulting credential pair.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	return s.auth.Login(ctx, username, password)
}

// Logout revokes and clears the stored credentials.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.auth.Logout(ctx)
}

// Status describes the stored session without contacting the server.
type Status struct {
	LoggedIn        bool
	HasRefreshToken bool
	Claims          *credentials.Claims // nil when the access token is not a JWT
}

// Status inspects the stored credentials.
func (s *AuthService) Status(ctx context.Context) (Status, error) {
	pair, err := s.auth.Credentials(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		LoggedIn:        !pair.IsZero(),
		HasRefreshToken: pair.RefreshToken != "",
	}
	if pair.AccessToken != "" {
		if claims, err := credentials.Inspect(pair.AccessToken); err == nil {
			st.Claims = claims
		}
	}
	return st, nil
}
