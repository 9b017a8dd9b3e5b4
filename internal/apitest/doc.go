// Package apitest runs an in-process fake of the Predictera backend for
// tests. It speaks the same envelope and token protocol as the real API and
// lets tests gate, fail, and count requests.
package apitest
