// Package reveal turns assistant replies into terminal output: Render
// converts markdown to styled plain text and Typewriter writes it out
// progressively, the way the dashboard animated a fresh reply.
package reveal
