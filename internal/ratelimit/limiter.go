// Package ratelimit enforces per-user daily connection ceilings against
// the daily stats table.
package ratelimit

import (
	"context"
	"time"

	"github.com/reachforge/puppet/internal/storage"
)

// Quota is one user's standing for the current UTC day.
type Quota struct {
	Current   int
	Limit     int
	Remaining int
}

func (q Quota) Exhausted() bool { return q.Remaining <= 0 }

type Limiter struct {
	stats storage.StatsRepo
}

func NewLimiter(stats storage.StatsRepo) *Limiter {
	return &Limiter{stats: stats}
}

// Check reads today's connections_sent and computes the remaining budget.
// remaining = max(0, limit - current).
func (l *Limiter) Check(ctx context.Context, userID string, dailyLimit int) (Quota, error) {
	stats, err := l.stats.GetDay(ctx, userID, time.Now().UTC())
	if err != nil {
		return Quota{}, err
	}

	remaining := dailyLimit - stats.ConnectionsSent
	if remaining < 0 {
		remaining = 0
	}

	return Quota{
		Current:   stats.ConnectionsSent,
		Limit:     dailyLimit,
		Remaining: remaining,
	}, nil
}

// RecordCompletion counts a successful connection. messageSent marks jobs
// that also delivered a note.
func (l *Limiter) RecordCompletion(ctx context.Context, userID string, messageSent bool) error {
	deltas := storage.StatDeltas{ConnectionsSent: 1, JobsCompleted: 1}
	if messageSent {
		deltas.MessagesSent = 1
	}
	return l.stats.Increment(ctx, userID, time.Now().UTC(), deltas)
}

func (l *Limiter) RecordFailure(ctx context.Context, userID string) error {
	return l.stats.Increment(ctx, userID, time.Now().UTC(), storage.StatDeltas{JobsFailed: 1})
}
