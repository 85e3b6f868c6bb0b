// Package memory - хранилище записей в памяти процесса.
// Используется по умолчанию и в тестах.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dreschagin/qtrack/internal/domain/repository"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte
}

func NewStore() *Store {
	return &Store{records: make(map[string]map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[collection][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(data), nil
}

func (s *Store) Put(ctx context.Context, collection, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.records[collection]
	if !ok {
		bucket = make(map[string][]byte)
		s.records[collection] = bucket
	}
	bucket[id] = clone(data)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[collection][id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records[collection], id)
	return nil
}

// Scan возвращает записи в порядке id, чтобы результат был детерминирован
func (s *Store) Scan(ctx context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.records[collection]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([][]byte, 0, len(ids))
	for _, id := range ids {
		result = append(result, clone(bucket[id]))
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
