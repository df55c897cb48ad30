// Package cli implements launcherctl, a command-line client for the
// launcher REST API.
package cli
