package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/linnemanlabs/remedy/internal/incident"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "dedup.json"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestClaim_FirstWins(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	key := incident.Key{DAGName: "etl", RunDate: "2024-01-01"}

	won, err := s.Claim(context.Background(), key)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !won {
		t.Error("first Claim = false, want true")
	}

	won, err = s.Claim(context.Background(), key)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if won {
		t.Error("second Claim = true, want false")
	}
}

func TestClaim_PartialKeysNeverDeduplicated(t *testing.T) {
	t.Parallel()

	s := newStore(t)

	tests := []struct {
		name string
		key  incident.Key
	}{
		{"missing run date", incident.Key{DAGName: "etl"}},
		{"missing dag name", incident.Key{RunDate: "2024-01-01"}},
		{"empty key", incident.Key{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 3 {
				won, err := s.Claim(context.Background(), tt.key)
				if err != nil {
					t.Fatalf("Claim: %v", err)
				}
				if !won {
					t.Error("partial key Claim = false, want true every time")
				}
			}
		})
	}

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (partial keys are never recorded)", s.Len())
	}
}

func TestClaim_SurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dedup.json")
	key := incident.Key{DAGName: "etl", RunDate: "2024-01-01"}

	s1, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if won, _ := s1.Claim(context.Background(), key); !won {
		t.Fatal("first Claim = false, want true")
	}

	// Reopen the same file, simulating a process restart.
	s2, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if won, _ := s2.Claim(context.Background(), key); won {
		t.Error("Claim after restart = true, want false")
	}
}

func TestClaim_CorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dedup.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	won, err := s.Claim(context.Background(), incident.Key{DAGName: "etl", RunDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !won {
		t.Error("Claim on corrupt store = false, want true (store degrades to empty)")
	}
}

func TestClaim_ConcurrentSameKey(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	key := incident.Key{DAGName: "etl", RunDate: "2024-01-01"}

	const n = 50
	var wg sync.WaitGroup
	wins := make(chan bool, n)

	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			won, err := s.Claim(context.Background(), key)
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}
