package memory

import (
	"context"
	"fmt"
	"testing"
)

// fakeStore keeps points in memory and returns them all on search.
type fakeStore struct {
	points      []Point
	collections []string
	vectorSize  uint64
	searchErr   error
}

func (f *fakeStore) Upsert(ctx context.Context, collection string, points []Point) error {
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []SearchResult
	for i, p := range f.points {
		if i >= limit {
			break
		}
		out = append(out, SearchResult{ID: p.ID, Score: 0.9, Point: p})
	}
	return out, nil
}

func (f *fakeStore) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	f.collections = append(f.collections, name)
	f.vectorSize = vectorSize
	return nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestDisabledMemoryIsNoop(t *testing.T) {
	m := NewBusinessMemory(nil, nil, BusinessMemoryConfig{Enabled: true})
	ctx := context.Background()

	if m.Enabled() {
		t.Error("memory without a store should report disabled")
	}
	if err := m.Remember(ctx, KindTask, "restock beans", "operations"); err != nil {
		t.Errorf("disabled remember should be a no-op, got %v", err)
	}
	docs, err := m.Recall(ctx, "beans", 5)
	if err != nil || docs != nil {
		t.Errorf("disabled recall should return nothing, got %v, %v", docs, err)
	}
}

func TestRememberAndRecall(t *testing.T) {
	store := &fakeStore{}
	m := NewBusinessMemory(store, &fakeEmbedder{}, BusinessMemoryConfig{Enabled: true})
	ctx := context.Background()

	if err := m.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if len(store.collections) != 1 || store.collections[0] != "helios_memory" {
		t.Errorf("expected default collection created, got %v", store.collections)
	}
	// Collection sized from the embedder output, not a fixed default.
	if store.vectorSize != 3 {
		t.Errorf("expected vector size 3 from embedder, got %d", store.vectorSize)
	}

	if err := m.Remember(ctx, KindTransaction, "sold 2 lattes", "finance"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	docs, err := m.Recall(ctx, "latte sales", 5)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Kind != KindTransaction || docs[0].Text != "sold 2 lattes" || docs[0].Agent != "finance" {
		t.Errorf("payload not round-tripped: %+v", docs[0])
	}
	if docs[0].StoredAt.IsZero() {
		t.Error("expected stored_at to be set")
	}
}

func TestRecallWrapsStoreErrors(t *testing.T) {
	store := &fakeStore{searchErr: fmt.Errorf("qdrant unavailable")}
	m := NewBusinessMemory(store, &fakeEmbedder{}, BusinessMemoryConfig{Enabled: true})

	if _, err := m.Recall(context.Background(), "anything", 5); err == nil {
		t.Error("expected error from failing store")
	}
}

func TestRememberEmbedError(t *testing.T) {
	m := NewBusinessMemory(&fakeStore{}, &fakeEmbedder{err: fmt.Errorf("ollama down")},
		BusinessMemoryConfig{Enabled: true})

	if err := m.Remember(context.Background(), KindEvent, "text", ""); err == nil {
		t.Error("expected error from failing embedder")
	}
}
