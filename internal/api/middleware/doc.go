// Package middleware holds the gin middleware shared by the launcher API:
// CORS for the shell UI, per-client rate limiting, request ids and request
// logging.
package middleware
