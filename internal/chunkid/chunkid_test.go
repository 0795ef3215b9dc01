package chunkid

import (
	"strings"
	"testing"
)

func TestNew_deterministic(t *testing.T) {
	a := New("ing-1", 0)
	b := New("ing-1", 0)
	if a != b {
		t.Errorf("same input produced different ids: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, prefix) {
		t.Errorf("id %q missing prefix %q", a, prefix)
	}
}

func TestNew_distinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, ing := range []string{NewIngestionID(), NewIngestionID()} {
		for i := 0; i < 100; i++ {
			id := New(ing, i)
			if seen[id] {
				t.Fatalf("collision for ingestion %s index %d", ing, i)
			}
			seen[id] = true
		}
	}
}

func TestNew_noConcatAmbiguity(t *testing.T) {
	if New("a1", 1) == New("a", 11) {
		t.Error("ingestion id and index must be separated")
	}
}

func TestNewIngestionID(t *testing.T) {
	if NewIngestionID() == NewIngestionID() {
		t.Error("ingestion ids should be unique")
	}
}
