package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id1.Compare(id2) >= 0 {
		t.Error("Monotonic IDs should sort in generation order")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{SessionPrefix, SocketPrefix, InstancePrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Fatalf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
		if !IsValid(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	if !strings.HasPrefix(NewSessionID().String(), "sess_") {
		t.Error("SessionID should start with 'sess_'")
	}
	if !strings.HasPrefix(NewSocketID().String(), "sock_") {
		t.Error("SocketID should start with 'sock_'")
	}
	if !strings.HasPrefix(NewInstanceID().String(), "inst_") {
		t.Error("InstanceID should start with 'inst_'")
	}
	if _, err := uuid.Parse(NewPromptID().String()); err != nil {
		t.Errorf("PromptID should be a UUID: %v", err)
	}
	if _, err := uuid.Parse(NewUploadItemID()); err != nil {
		t.Errorf("upload item ID should be a UUID: %v", err)
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	raw := NewGenerator().Generate().String()

	ts, err := Timestamp(raw)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should be after %v", ts, before)
	}

	if _, err := Timestamp("not-a-ulid"); err == nil {
		t.Error("expected error for invalid ULID")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const n = 200

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := gen.GenerateWithPrefix(SessionPrefix)
			mu.Lock()
			seen[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d unique IDs, got %d", n, len(seen))
	}
}
