// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/helios-ops/helios/pkg/errors"
)

// DocumentKind classifies what a remembered document describes.
type DocumentKind string

const (
	KindTask        DocumentKind = "task"
	KindTransaction DocumentKind = "transaction"
	KindInsight     DocumentKind = "insight"
	KindEvent       DocumentKind = "event"
)

// Document is a remembered business event.
type Document struct {
	ID       string       `json:"id"`
	Kind     DocumentKind `json:"kind"`
	Text     string       `json:"text"`
	Agent    string       `json:"agent,omitempty"`
	Score    float32      `json:"score,omitempty"`
	StoredAt time.Time    `json:"stored_at"`
}

// BusinessMemoryConfig controls the memory layer.
type BusinessMemoryConfig struct {
	Enabled        bool
	Collection     string
	VectorSize     uint64
	ScoreThreshold float32
}

// BusinessMemory stores and recalls business events semantically. When
// disabled (no vector store configured) every call is a cheap no-op, so
// callers never need to branch on availability.
type BusinessMemory struct {
	store    VectorStore
	embedder Embedder
	config   BusinessMemoryConfig
	logger   *slog.Logger
}

// NewBusinessMemory creates the memory layer. Pass nil store or embedder
// to run disabled.
func NewBusinessMemory(store VectorStore, embedder Embedder, config BusinessMemoryConfig) *BusinessMemory {
	if store == nil || embedder == nil {
		config.Enabled = false
	}
	if config.Collection == "" {
		config.Collection = "helios_memory"
	}
	return &BusinessMemory{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "memory"),
	}
}

// Enabled reports whether memory is active.
func (m *BusinessMemory) Enabled() bool {
	return m != nil && m.config.Enabled
}

// Init ensures the backing collection exists, sizing it from the
// embedder's output when no vector size is configured. A no-op when
// disabled.
func (m *BusinessMemory) Init(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	if m.config.VectorSize == 0 {
		vector, err := m.embedder.Embed(ctx, "helios")
		if err != nil {
			return errors.New(errors.CodeMemoryError, "embedder dimension check failed", err).
				WithRecoverable(true)
		}
		m.config.VectorSize = uint64(len(vector))
	}
	if err := m.store.CreateCollection(ctx, m.config.Collection, m.config.VectorSize); err != nil {
		// Collection may already exist; log and carry on.
		m.logger.DebugContext(ctx, "create collection", "error", err)
	}
	return nil
}

// Remember stores a document. A no-op when disabled.
func (m *BusinessMemory) Remember(ctx context.Context, kind DocumentKind, text, agent string) error {
	if !m.Enabled() {
		return nil
	}
	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return errors.New(errors.CodeMemoryError, "embed failed", err).WithRecoverable(true)
	}

	now := time.Now().UTC()
	point := Point{
		ID:     uuid.NewString(),
		Vector: vector,
		Payload: map[string]interface{}{
			"kind":      string(kind),
			"text":      text,
			"agent":     agent,
			"stored_at": now.Unix(),
		},
		Timestamp: now.Unix(),
	}
	if err := m.store.Upsert(ctx, m.config.Collection, []Point{point}); err != nil {
		return errors.New(errors.CodeMemoryError, "memory upsert failed", err).WithRecoverable(true)
	}
	return nil
}

// Recall finds documents semantically close to the query. Returns nil
// when disabled.
func (m *BusinessMemory) Recall(ctx context.Context, query string, limit int) ([]Document, error) {
	if !m.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "embed failed", err).WithRecoverable(true)
	}

	results, err := m.store.Search(ctx, m.config.Collection, vector, limit, m.config.ScoreThreshold)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "memory search failed", err).WithRecoverable(true)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{ID: r.ID, Score: r.Score}
		if kind, ok := r.Point.Payload["kind"].(string); ok {
			doc.Kind = DocumentKind(kind)
		}
		if text, ok := r.Point.Payload["text"].(string); ok {
			doc.Text = text
		}
		if agent, ok := r.Point.Payload["agent"].(string); ok {
			doc.Agent = agent
		}
		if ts, ok := r.Point.Payload["stored_at"].(int64); ok {
			doc.StoredAt = time.Unix(ts, 0).UTC()
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
