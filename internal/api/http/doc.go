// Package http exposes the launcher over a JSON API built on gin.
//
// Launch outcomes map onto status codes: 201 for a new instance, 200 when an
// existing one was reused, and 4xx/5xx by failure category. The full
// LaunchResult is always returned in the body.
package http
