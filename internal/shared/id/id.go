// Package id provides ULID-based identifier generation for the launcher.
//
// Instance ids combine the application id, the process (or session) id and a
// monotonic ULID, so two launches of the same application in the same
// millisecond still get distinct ids and sort by launch time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InstanceID identifies one launched application instance
type InstanceID string

// SessionID identifies an embedded-browser session
type SessionID string

// RequestID identifies an API request
type RequestID string

// SubscriberID identifies an event-stream subscriber
type SubscriberID string

const (
	SessionPrefix    = "sess"
	RequestPrefix    = "req"
	SubscriberPrefix = "sub"
)

// Generator generates monotonic ULIDs with optional prefixes
type Generator struct {
	entropy io.Reader
	mu      sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// entropy within a millisecond.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewInstanceID builds "<appID>_<pid>_<ulid>".
func NewInstanceID(appID string, pid int) InstanceID {
	return Default().InstanceID(appID, pid)
}

// InstanceID builds an instance id using this generator.
func (g *Generator) InstanceID(appID string, pid int) InstanceID {
	app := strings.TrimSpace(appID)
	if app == "" {
		app = "app"
	}
	return InstanceID(fmt.Sprintf("%s_%d_%s", app, pid, g.GenerateString()))
}

// NewSessionID generates a new embedded-browser session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSubscriberID generates a new event-stream subscriber ID
func NewSubscriberID() SubscriberID {
	return SubscriberID(Default().GenerateWithPrefix(SubscriberPrefix))
}

func (id InstanceID) String() string   { return string(id) }
func (id SessionID) String() string    { return string(id) }
func (id RequestID) String() string    { return string(id) }
func (id SubscriberID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from a ULID, or from the trailing ULID of
// a prefixed or instance id.
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndex(id, "_"); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
