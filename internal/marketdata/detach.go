package marketdata

import (
	"slices"
	"time"

	"github.com/verrerie/finx-sub000/internal/provider"
	"github.com/verrerie/finx-sub000/internal/provider/cache"
)

// detach copies values that carry slices or pointers so a caller never
// shares memory with a cache entry.
func detach[T any](v T) T {
	switch x := any(v).(type) {
	case []provider.Bar:
		return any(slices.Clone(x)).(T)
	case []provider.SymbolMatch:
		return any(slices.Clone(x)).(T)
	case provider.CompanyInfo:
		return any(x.Clone()).(T)
	}
	return v
}

func cacheGet[T any](s *Service, key string) (T, bool) {
	v, ok := cache.GetAs[T](s.cache, key)
	if !ok {
		return v, false
	}
	return detach(v), true
}

func cacheSet[T any](s *Service, key string, v T, ttl time.Duration) {
	s.cache.Set(key, detach(v), ttl)
}
