// Package notify polls the notifications endpoint and emits each
// notification once. A bounded TTL set remembers what has already been
// emitted so repeated polls do not re-announce old alerts.
package notify
