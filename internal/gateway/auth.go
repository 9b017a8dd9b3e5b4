// ABOUTME: Login, logout, and refresh calls against /authentications
// ABOUTME: Credential pairs are persisted through the client's store

package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/predictera-console/internal/credentials"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges username and password for a credential pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req := Request{
		Method: http.MethodPost,
		Path:   authPath,
		Body:   loginRequest{Username: username, Password: password},
	}

	var data tokenData
	if err := c.unauthenticated(ctx, req, &data); err != nil {
		return err
	}
	if data.AccessToken == "" {
		return fmt.Errorf("login response missing access token")
	}

	pair := credentials.Pair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}
	if err := c.store.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	c.logger.Info("logged in", "username", username)
	return nil
}

// Logout revokes the refresh token on the server (best effort) and clears
// the stored credentials. Only a failure to clear is returned.
func (c *Client) Logout(ctx context.Context) error {
	pair, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if pair.RefreshToken != "" {
		req := Request{
			Method: http.MethodDelete,
			Path:   authPath,
			Body:   refreshRequest{RefreshToken: pair.RefreshToken},
		}
		if err := c.unauthenticated(ctx, req, nil); err != nil {
			c.logger.Warn("server logout failed, clearing local credentials anyway", "error", err)
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

// Authenticated reports whether any credential is stored. It does not
// contact the server; an expired access token still counts while a refresh
// token is available.
func (c *Client) Authenticated(ctx context.Context) (bool, error) {
	pair, err := c.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading credentials: %w", err)
	}
	return !pair.IsZero(), nil
}

// Credentials returns the stored credential pair.
func (c *Client) Credentials(ctx context.Context) (credentials.Pair, error) {
	return c.store.Load(ctx)
}

// exchangeRefreshToken is the coordinator's TokenRefresher: PUT
// /authentications with the refresh token in the body and no bearer header.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	req := Request{
		Method: http.MethodPut,
		Path:   authPath,
		Body:   refreshRequest{RefreshToken: refreshToken},
	}

	var data tokenData
	if err := c.unauthenticated(ctx, req, &data); err != nil {
		return credentials.Pair{}, err
	}
	if data.AccessToken == "" {
		return credentials.Pair{}, fmt.Errorf("refresh response missing access token")
	}
	return credentials.Pair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}, nil
}

// unauthenticated sends req without a bearer token and without the refresh
// path, decoding the envelope data into out.
func (c *Client) unauthenticated(ctx context.Context, req Request, out any) error {
	payload, err := marshalBody(req.Body)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req, payload, "", uuid.New().String())
	if err != nil {
		return err
	}
	return decodeResponse(req, resp, out)
}
