package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

func newTestSession(id string, at time.Time) *ConnectionSession {
	return newConnectionSession(id, at, gesture.NewPolicy(nil, time.Second))
}

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
	if got := len(s.GetAll()); got != 0 {
		t.Errorf("new store has %d sessions, want 0", got)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("new store Count() = %d, want 0", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore()
	cs, ok := s.Get("nonexistent")
	if ok {
		t.Error("Get for missing key returned ok=true")
	}
	if cs != nil {
		t.Error("Get for missing key returned non-nil session")
	}
}

func TestAddGetRemove(t *testing.T) {
	s := NewStore()
	s.Add(newTestSession("a", time.Now()))

	cs, ok := s.Get("a")
	if !ok || cs.ID != "a" {
		t.Fatalf("Get(a) = %v, %v", cs, ok)
	}

	removed, ok := s.Remove("a")
	if !ok || removed != cs {
		t.Errorf("Remove(a) = %v, %v; want the registered session", removed, ok)
	}
	if _, ok := s.Remove("a"); ok {
		t.Error("second Remove(a) returned ok=true")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d after remove", s.Count())
	}
}

func TestGetAllOrderedByConnectTime(t *testing.T) {
	s := NewStore()
	base := time.Now()
	s.Add(newTestSession("late", base.Add(2*time.Second)))
	s.Add(newTestSession("early", base))
	s.Add(newTestSession("middle", base.Add(time.Second)))

	all := s.GetAll()
	want := []string{"early", "middle", "late"}
	if len(all) != len(want) {
		t.Fatalf("GetAll() returned %d items, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("GetAll()[%d] = %s, want %s", i, all[i].ID, id)
		}
	}
}

func TestGetAllReturnsSnapshots(t *testing.T) {
	s := NewStore()
	cs := newTestSession("a", time.Now())
	s.Add(cs)

	all := s.GetAll()
	all[0].Instrument = "violin"

	if got := cs.Instrument(); got != "piano" {
		t.Errorf("snapshot mutation leaked into session: instrument = %s", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", n)
			s.Add(newTestSession(id, time.Now()))
			s.Get(id)
			s.GetAll()
			s.Count()
			if n%2 == 0 {
				s.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	if got := s.Count(); got != 25 {
		t.Errorf("Count() = %d, want 25", got)
	}
}
