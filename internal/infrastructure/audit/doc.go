// Package audit persists launch and termination records so operators can
// see who started what and how it ended.
package audit
