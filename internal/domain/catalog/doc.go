// Package catalog loads the set of launchable applications and the roles
// of the users allowed to run them. Catalog files may be YAML, TOML or
// JSON. A Watcher keeps the Store in sync with the file on disk and
// DiscoverAPKs adds Android packages found in configured directories.
package catalog
