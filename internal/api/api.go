// ABOUTME: Service aggregate and shared request helpers for the typed API
// ABOUTME: All services issue requests through the Doer interface

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/2389/predictera-console/internal/gateway"
)

// Doer sends one request and decodes the envelope data into out.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// Client bundles every resource service over one gateway.
type Client struct {
	Auth          *AuthService
	Agent         *AgentService
	Machines      *MachineService
	Diagnostics   *DiagnosticService
	Sensors       *SensorService
	Users         *UserService
	Notifications *NotificationService
}

// New wires all services to gw.
func New(gw *gateway.Client) *Client {
	return &Client{
		Auth:          NewAuthService(gw),
		Agent:         NewAgentService(gw),
		Machines:      NewMachineService(gw),
		Diagnostics:   NewDiagnosticService(gw),
		Sensors:       NewSensorService(gw),
		Users:         NewUserService(gw),
		Notifications: NewNotificationService(gw),
	}
}

func get(ctx context.Context, d Doer, path string, out any) error {
	return d.Do(ctx, gateway.Request{Method: http.MethodGet, Path: path}, out)
}

func post(ctx context.Context, d Doer, path string, body, out any) error {
	return d.Do(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func put(ctx context.Context, d Doer, path string, body, out any) error {
	return d.Do(ctx, gateway.Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func del(ctx context.Context, d Doer, path string) error {
	return d.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: path}, nil)
}

// withLimit appends ?limit=n when n is positive.
func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return path + "?" + q.Encode()
}

func idPath(prefix string, id int64, suffix ...string) string {
	p := fmt.Sprintf("%s/%d", prefix, id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
