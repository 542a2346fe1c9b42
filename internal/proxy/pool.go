// Package proxy manages the egress proxy pool: LRU checkout under an
// exclusive lease, per-proxy daily caps, and failure accounting.
package proxy

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
)

var ErrNoProxyAvailable = errors.New("no proxy available")

type Pool struct {
	repo             storage.ProxyRepo
	lease            Lease
	leaseTTL         time.Duration
	failureThreshold int
	log              *logrus.Entry
}

func NewPool(repo storage.ProxyRepo, lease Lease, leaseTTL time.Duration, failureThreshold int) *Pool {
	return &Pool{
		repo:             repo,
		lease:            lease,
		leaseTTL:         leaseTTL,
		failureThreshold: failureThreshold,
		log:              logrus.WithField("component", "proxy_pool"),
	}
}

// Checkout selects the least-recently-used eligible proxy and takes an
// exclusive lease on it. Candidates already leased by a concurrent dispatch
// are skipped. Returns ErrNoProxyAvailable when every candidate is capped,
// inactive or held.
func (p *Pool) Checkout(ctx context.Context, userID, location string) (*models.Proxy, error) {
	candidates, err := p.repo.ListCandidates(ctx, userID, location)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		ok, err := p.lease.TryAcquire(ctx, c.ID, p.leaseTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			p.log.WithFields(logrus.Fields{"proxy_id": c.ID, "user_id": userID}).Debug("proxy checked out")
			return c, nil
		}
	}

	return nil, ErrNoProxyAvailable
}

// Release returns a proxy after one job execution: the daily counter and
// LRU stamp advance, success/failure is recorded, and the lease is freed.
// proxyFault marks failures attributable to the proxy itself; past the
// threshold the proxy transitions to failed.
func (p *Pool) Release(ctx context.Context, proxyID string, proxyFault bool) {
	if err := p.repo.IncrementUsage(ctx, proxyID); err != nil {
		p.log.WithError(err).WithField("proxy_id", proxyID).Error("usage increment failed")
	}

	if proxyFault {
		if err := p.repo.ReportFailure(ctx, proxyID, p.failureThreshold); err != nil {
			p.log.WithError(err).WithField("proxy_id", proxyID).Error("failure report failed")
		}
	} else {
		if err := p.repo.ReportSuccess(ctx, proxyID); err != nil {
			p.log.WithError(err).WithField("proxy_id", proxyID).Error("success report failed")
		}
	}

	if err := p.lease.Release(ctx, proxyID); err != nil {
		p.log.WithError(err).WithField("proxy_id", proxyID).Error("lease release failed")
	}
}

// Abort frees the lease without touching counters, for checkouts whose job
// was never dispatched (for example a lost claim race).
func (p *Pool) Abort(ctx context.Context, proxyID string) {
	if err := p.lease.Release(ctx, proxyID); err != nil {
		p.log.WithError(err).WithField("proxy_id", proxyID).Error("lease release failed")
	}
}

// ResetDailyCounters zeroes stale daily counters; run once per dispatch
// cycle so every proxy resets at the first cycle after UTC midnight.
func (p *Pool) ResetDailyCounters(ctx context.Context) {
	n, err := p.repo.ResetStaleCounters(ctx, time.Now().UTC())
	if err != nil {
		p.log.WithError(err).Error("daily counter reset failed")
		return
	}
	if n > 0 {
		p.log.WithField("proxies", n).Info("daily proxy counters reset")
	}
}
