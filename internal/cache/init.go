package cache

import (
	"github.com/numera/numera/internal/logger"
)

// Initialize sets up the process-wide in-memory cache
func Initialize(log *logger.Logger) *InMemoryCache {
	InitializeInMemoryCache()
	log.Debugw("in-memory cache initialized")
	return GetInMemoryCache()
}
