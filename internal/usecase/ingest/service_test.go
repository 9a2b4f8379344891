package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/mindseye/internal/domain"
	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// --- Mocks ---

type mockLoader struct {
	mu     sync.Mutex
	events []event.Event[any]
	err    error
	calls  int
}

func (m *mockLoader) LoadEvents(_ context.Context) ([]event.Event[any], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.events, m.err
}

func (m *mockLoader) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Helpers ---

func ev(id string) event.Event[any] {
	return event.Reconstruct[any](id, event.SourceGmail, "email", "2024-01-01T00:00:00Z", map[string]any{"id": id})
}

// --- Tests ---

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name    string
		events  []event.Event[any]
		wantErr string
	}{
		{"empty batch", nil, ""},
		{"unique ids", []event.Event[any]{ev("a"), ev("b")}, ""},
		{"empty id", []event.Event[any]{ev("a"), ev("")}, "index 1 has empty id"},
		{"duplicate id", []event.Event[any]{ev("a"), ev("b"), ev("a")}, `duplicate id "a" at index 2 (first at 0)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.events)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrMalformedInput) {
				t.Fatalf("expected ErrMalformedInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRefresh_LoadsIntoStore(t *testing.T) {
	store := search.NewStore[any](nil)
	svc := New[any](&mockLoader{events: []event.Event[any]{ev("1"), ev("2")}}, store, nil)

	info, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Events != 2 || store.Info().Generation != info.Generation {
		t.Errorf("Info = %+v, store info = %+v", info, store.Info())
	}
}

func TestRefresh_KeepsPreviousCollectionOnError(t *testing.T) {
	store := search.NewStore[any](nil)
	store.Load([]event.Event[any]{ev("kept")})
	before := store.Info()

	tests := []struct {
		name   string
		loader *mockLoader
		is     error
	}{
		{"loader error", &mockLoader{err: errors.New("disk gone")}, nil},
		{"invalid batch", &mockLoader{events: []event.Event[any]{ev("x"), ev("x")}}, domain.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[any](tt.loader, store, nil).Refresh(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
			if store.Info() != before {
				t.Error("store should keep the previous snapshot")
			}
		})
	}
}

func TestRun_RefreshesPeriodically(t *testing.T) {
	loader := &mockLoader{events: []event.Event[any]{ev("1")}}
	svc := New[any](loader, search.NewStore[any](nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := svc.Run(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := loader.callCount(); n < 2 {
		t.Errorf("expected several refreshes, got %d", n)
	}
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	loader := &mockLoader{err: errors.New("flaky")}
	svc := New[any](loader, search.NewStore[any](nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := svc.Run(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := loader.callCount(); n < 2 {
		t.Errorf("failures should not stop the loop, got %d calls", n)
	}
}

func TestRun_InvalidInterval(t *testing.T) {
	svc := New[any](&mockLoader{}, search.NewStore[any](nil), nil)
	if err := svc.Run(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
