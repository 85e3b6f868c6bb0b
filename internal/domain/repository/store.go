package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound возвращается хранилищем, если записи нет
var ErrNotFound = errors.New("record not found")

// Имена коллекций; по одной на тип сущности
const (
	CollectionTickets    = "tickets"
	CollectionComments   = "comments"
	CollectionTestCases  = "test_cases"
	CollectionTestSuites = "test_suites"
	CollectionUsers      = "users"
	CollectionActivity   = "activity_logs"
)

// Store - порт key-value хранилища записей, сгруппированных по коллекциям.
// Реализации: memory (тесты), postgres, dynamodb.
type Store interface {
	// Get возвращает сериализованную запись или ErrNotFound
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Put создает или перезаписывает запись
	Put(ctx context.Context, collection, id string, data []byte) error

	// Delete удаляет запись; ErrNotFound если ее не было
	Delete(ctx context.Context, collection, id string) error

	// Scan возвращает все записи коллекции в произвольном порядке
	Scan(ctx context.Context, collection string) ([][]byte, error)

	Close() error
}

// Collection - типизированная обертка над Store с JSON сериализацией
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name возвращает имя коллекции
func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", c.name, id, err)
	}
	return &item, nil
}

func (c *Collection[T]) Put(ctx context.Context, id string, item *T) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Put(ctx, c.name, id, data)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// List возвращает записи, для которых filter вернул true (nil - все)
func (c *Collection[T]) List(ctx context.Context, filter func(*T) bool) ([]*T, error) {
	raw, err := c.store.Scan(ctx, c.name)
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(raw))
	for _, data := range raw {
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", c.name, err)
		}
		if filter == nil || filter(&item) {
			items = append(items, &item)
		}
	}
	return items, nil
}
