package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/pos/internal/domain/shared"
	"go.uber.org/zap"
)

// SnapshotVersion is the envelope version written by Save
const SnapshotVersion = 1

// ErrCollectionMissing is the load warning for a collection that has never
// been saved, the normal situation on first run.
var ErrCollectionMissing = fmt.Errorf("collection not saved yet: %w", shared.ErrPersistence)

// envelope is the persisted form of a collection
type envelope[T any] struct {
	Version int `json:"version" yaml:"version"`
	NextID  int `json:"next_id" yaml:"next_id"`
	Items   []T `json:"items" yaml:"items"`
}

// EntityStore persists a whole collection of T as one snapshot
type EntityStore[T any] struct {
	name    string
	backend Backend
	codec   Codec
	logger  *zap.Logger
}

var (
	_ shared.Store[int]        = (*EntityStore[int])(nil)
	_ shared.CounterStore[int] = (*EntityStore[int])(nil)
)

// NewEntityStore creates a store for the collection called name
func NewEntityStore[T any](name string, backend Backend, codec Codec, logger *zap.Logger) *EntityStore[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityStore[T]{
		name:    name,
		backend: backend,
		codec:   codec,
		logger:  logger.With(zap.String("collection", name)),
	}
}

// Name returns the collection name
func (s *EntityStore[T]) Name() string {
	return s.name
}

// BlobName returns the key the snapshot is stored under
func (s *EntityStore[T]) BlobName() string {
	return s.name + "." + s.codec.Extension()
}

// Load returns the persisted collection. See LoadWithCounter.
func (s *EntityStore[T]) Load(ctx context.Context) ([]T, error) {
	items, _, err := s.LoadWithCounter(ctx)
	return items, err
}

// LoadWithCounter returns the persisted collection and its ID counter.
// Missing, unreadable or incompatible data yields an empty collection, a zero
// counter and a warning error wrapping shared.ErrPersistence.
func (s *EntityStore[T]) LoadWithCounter(ctx context.Context) ([]T, int, error) {
	data, err := s.backend.Read(ctx, s.BlobName())
	if errors.Is(err, ErrBlobNotFound) {
		return []T{}, 0, fmt.Errorf("load %s: %w", s.name, ErrCollectionMissing)
	}
	if err != nil {
		return []T{}, 0, fmt.Errorf("load %s: %w: %w", s.name, shared.ErrPersistence, err)
	}

	var env envelope[T]
	if err := s.codec.Unmarshal(data, &env); err != nil {
		return []T{}, 0, fmt.Errorf("decode %s: %w: %w", s.name, shared.ErrPersistence, err)
	}
	if env.Version != SnapshotVersion {
		return []T{}, 0, fmt.Errorf("decode %s: %w: unsupported snapshot version %d", s.name, shared.ErrPersistence, env.Version)
	}
	if env.Items == nil {
		env.Items = []T{}
	}

	s.logger.Debug("Collection loaded", zap.Int("count", len(env.Items)))
	return env.Items, env.NextID, nil
}

// Save replaces the persisted collection
func (s *EntityStore[T]) Save(ctx context.Context, items []T) error {
	return s.SaveWithCounter(ctx, items, 0)
}

// SaveWithCounter replaces the persisted collection and its ID counter in
// one write.
func (s *EntityStore[T]) SaveWithCounter(ctx context.Context, items []T, nextID int) error {
	if items == nil {
		items = []T{}
	}
	data, err := s.codec.Marshal(envelope[T]{
		Version: SnapshotVersion,
		NextID:  nextID,
		Items:   items,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w: %w", s.name, shared.ErrPersistence, err)
	}

	if err := s.backend.Write(ctx, s.BlobName(), data); err != nil {
		return fmt.Errorf("save %s: %w: %w", s.name, shared.ErrPersistence, err)
	}

	s.logger.Debug("Collection saved", zap.Int("count", len(items)))
	return nil
}

// LogLoadWarning logs the warning returned by a soft Load. A collection that
// was never saved is expected on first run and only logged at info level.
func LogLoadWarning(log *zap.Logger, collection string, err error) {
	if err == nil || log == nil {
		return
	}
	if errors.Is(err, ErrCollectionMissing) {
		log.Info("Collection not found, starting empty", zap.String("collection", collection))
		return
	}
	log.Warn("Collection could not be loaded, starting empty",
		zap.String("collection", collection),
		zap.Error(err),
	)
}
