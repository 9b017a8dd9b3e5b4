// Package gateway is the console's authenticated HTTP client for the
// Predictera REST API.
//
// # Overview
//
// Every outbound call goes through Client.Do, which:
//
//   - attaches "Authorization: Bearer <accessToken>" when a token is stored
//   - serializes the request body as JSON
//   - decodes the shared response envelope {status, message, data}
//   - converts failures into *Error values carrying a Kind
//
// # Token refresh
//
// A 401 on any path other than /authentications triggers a refresh through
// the client's RefreshCoordinator. The coordinator guarantees that at most
// one refresh call is outstanding: concurrent requests that see a 401 while
// a refresh is running wait for that refresh instead of starting their own.
// After a successful refresh the original request is retried exactly once.
// If the refresh fails, both stored tokens are cleared, the auth-expired hook
// fires, and callers receive an error of kind KindAuthExpired.
//
// Request lifecycle:
//
//	Sending ──2xx──────────────────────────────► Done
//	   │
//	   ├──401──► Refreshing ──ok──► Retrying ──2xx──► Done
//	   │             │                  └──401──► Failed (Unauthorized)
//	   │             └──fail──► Failed (AuthExpired, tokens cleared)
//	   └──other non-2xx / no response ──► Failed
//
// # Errors
//
// Use KindOf or errors.Is against the package sentinels:
//
//	if errors.Is(err, gateway.ErrAuthExpired) {
//	    // send the user back to login
//	}
//
// Describe turns any error into a short human-readable message; raw
// transport errors are never shown verbatim.
package gateway
