package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id2.Compare(id1) <= 0 {
		t.Error("Monotonic IDs should increase")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{SessionPrefix, RequestPrefix, SubscriberPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 || !IsValid(parts[1]) {
			t.Errorf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
	}
}

func TestInstanceIDFormat(t *testing.T) {
	got := string(NewInstanceID("notepad", 4242))

	if !strings.HasPrefix(got, "notepad_4242_") {
		t.Fatalf("unexpected instance id: %s", got)
	}
	if !IsValid(got[len("notepad_4242_"):]) {
		t.Errorf("instance id should end in a ULID: %s", got)
	}
}

func TestInstanceIDBlankApp(t *testing.T) {
	got := string(NewInstanceID("  ", 1))
	if !strings.HasPrefix(got, "app_1_") {
		t.Errorf("blank application id should fall back to 'app', got %s", got)
	}
}

func TestRapidInstanceIDsAreDistinct(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[InstanceID]bool)

	for i := 0; i < 1000; i++ {
		id := gen.InstanceID("calc", 100)
		if seen[id] {
			t.Fatalf("duplicate instance id after %d launches: %s", i, id)
		}
		seen[id] = true
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	id := NewInstanceID("calc", 7)
	after := time.Now()

	ts, err := Timestamp(string(id))
	if err != nil {
		t.Fatalf("Failed to extract timestamp: %v", err)
	}

	if ts.UnixMilli() < before.UnixMilli() || ts.UnixMilli() > after.UnixMilli() {
		t.Errorf("Timestamp %v outside [%v, %v]", ts, before, after)
	}
}

func TestIsValid(t *testing.T) {
	for _, id := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(id) {
			t.Errorf("ID should be invalid: %s", id)
		}
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan InstanceID, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.InstanceID("browser", 1)
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[InstanceID]bool)
	for id := range idChan {
		if seen[id] {
			t.Errorf("Duplicate ID in concurrent generation: %s", id)
		}
		seen[id] = true
	}
}
