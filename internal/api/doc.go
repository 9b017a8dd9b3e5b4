// Package api provides typed access to the Predictera REST resources:
// the agent chat, machines, diagnostics, sensor data, users, and
// notifications. Every service sends its requests through a Doer, which in
// production is the authenticated gateway client.
package api
