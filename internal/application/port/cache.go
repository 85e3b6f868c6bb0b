package port

import "context"

// Cache - кэш для дорогих агрегатов (аналитика). Значения сериализуются в JSON.
// Промах кэша возвращается как ошибка, вызывающий код считает значение заново.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error

	// DeletePattern удаляет ключи по glob шаблону, например "analytics:*"
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
