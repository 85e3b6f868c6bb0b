package service

import (
	"sort"
	"time"
)

// CountBy группирует элементы по ключу и считает их количество
func CountBy[T any](items []T, key func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

// CountWithKeys - как CountBy, но гарантирует присутствие ключей keys с нулем
func CountWithKeys[T any](items []T, keys []string, key func(T) string) map[string]int {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = 0
	}
	for _, item := range items {
		k := key(item)
		if _, ok := counts[k]; ok {
			counts[k]++
		}
	}
	return counts
}

// Filter возвращает элементы, удовлетворяющие предикату
func Filter[T any](items []T, keep func(T) bool) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// PassRate - процент прошедших среди выполненных, 0 если выполненных нет
func PassRate(passed, executed int) float64 {
	if executed == 0 {
		return 0
	}
	return Round2(float64(passed) / float64(executed) * 100)
}

// AverageHours - средняя длительность в часах, 0 для пустого набора
func AverageHours(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	return Round2(sum.Hours() / float64(len(durations)))
}

// SortByTime сортирует по времени; desc - от новых к старым
func SortByTime[T any](items []T, at func(T) time.Time, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return at(items[i]).After(at(items[j]))
		}
		return at(items[i]).Before(at(items[j]))
	})
}
