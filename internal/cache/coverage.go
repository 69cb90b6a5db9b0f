package cache

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/controlgap/internal/model"
)

// CoverageCache stores coverage results in a byte cache
type CoverageCache struct {
	backend Cache
	ttl     time.Duration
}

// NewCoverageCache wraps backend. ttl of zero uses the backend default.
func NewCoverageCache(backend Cache, ttl time.Duration) *CoverageCache {
	return &CoverageCache{backend: backend, ttl: ttl}
}

// Get returns a cached result. Undecodable entries are dropped and reported as a miss.
func (c *CoverageCache) Get(key string) (model.CoverageResult, bool) {
	data, ok := c.backend.Get(key)
	if !ok {
		return model.CoverageResult{}, false
	}
	var result model.CoverageResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.backend.Delete(key)
		return model.CoverageResult{}, false
	}
	return result, true
}

// Put stores a result
func (c *CoverageCache) Put(key string, result model.CoverageResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.backend.Set(key, data, c.ttl)
}
