package cache

import (
	"context"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
)

const progressKeyPrefix = "toeic:import:progress:"

// ImportProgress is the polled view of one import session
type ImportProgress struct {
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Status    models.ImportJobStatus `json:"status"`
	Progress  float64                `json:"progress"`
	Summary   models.ImportSummary   `json:"summary"`
	Error     string                 `json:"error,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ProgressCache stores the latest progress of each session so any instance
// behind the load balancer can answer a poll
type ProgressCache struct {
	cache CacheService
	ttl   time.Duration
}

func NewProgressCache(cache CacheService, ttl time.Duration) *ProgressCache {
	return &ProgressCache{cache: cache, ttl: ttl}
}

func (p *ProgressCache) Put(ctx context.Context, progress ImportProgress) error {
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now()
	}
	return p.cache.Set(ctx, progressKey(progress.SessionID), progress, p.ttl)
}

func (p *ProgressCache) Get(ctx context.Context, sessionID string) (*ImportProgress, error) {
	var progress ImportProgress
	if err := p.cache.Get(ctx, progressKey(sessionID), &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (p *ProgressCache) Delete(ctx context.Context, sessionID string) error {
	return p.cache.Delete(ctx, progressKey(sessionID))
}

func progressKey(sessionID string) string {
	return progressKeyPrefix + sessionID
}
