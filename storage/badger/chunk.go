package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	mu      sync.Mutex // guards next
	next    uint64     // position assigned to the next appended chunk
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	r := &ChunkRepository{backend: backend}

	err := backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.Reverse = true
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Seek(chunkKeyUpperBound())
		if iter.Valid() {
			r.next = positionFromChunkKey(iter.Item().Key()) + 1
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// Sync delegates to the backend.
func (r *ChunkRepository) Sync() error {
	return r.backend.Sync()
}

// Reset removes every key, including the manifest.
func (r *ChunkRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.DropAll(); err != nil {
		return err
	}
	r.next = 0
	return nil
}

// AddChunks appends chunks to storage in the given order.
// Writes go through a WriteBatch so a full index build is not bounded by
// badger's transaction size limit.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()

	position := r.next
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = time.Now().UTC()
		}

		key := makeChunkKey(position)
		if err := wb.Set(key, storage.MarshalChunk(chunk)); err != nil {
			return nil, err
		}
		if err := wb.Set(makeChunkIDKey(chunk.Id), key); err != nil {
			return nil, err
		}
		position++
	}

	if err := wb.Flush(); err != nil {
		return nil, err
	}
	r.next = position

	return chunks, nil
}

// UpdateChunks replaces existing chunks, matched by ID.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key, err := r.lookupKey(tx, chunk.Id)
			if err != nil {
				return err
			}
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key, err := r.lookupKey(tx, id)
		if err != nil {
			return err
		}
		item, err := tx.Get(key)
		if err != nil {
			if isNotFound(err) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalChunk(val)
			return err
		})
	}, false)
	return result, err
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ForEach calls fn with consecutive batches of chunks in insertion order.
// Context cancellation is checked between batches.
func (r *ChunkRepository) ForEach(ctx context.Context, batchSize int, fn func([]*core.Chunk) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", storage.ErrInvalidQuery, batchSize)
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		batch := make([]*core.Chunk, 0, batchSize)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			batch = append(batch, chunk)
			if len(batch) == batchSize {
				if err := fn(batch); err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				batch = make([]*core.Chunk, 0, batchSize)
			}
		}

		if len(batch) > 0 {
			return fn(batch)
		}
		return nil
	}, false)
}

// lookupKey resolves a chunk ID to its primary key.
func (r *ChunkRepository) lookupKey(tx *badger.Txn, id core.ID) ([]byte, error) {
	item, err := tx.Get(makeChunkIDKey(id))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: chunk %d", storage.ErrNotFound, id)
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}
