package ratelimit

import (
	"context"
)

// Webhook delivery limits. The provider retries on 429, so throttling
// here only smooths bursts, it never drops events.
const (
	webhookRate  = 50.0
	webhookBurst = 100
)

// WebhookLimiter throttles the billing webhook endpoint per source
// address.
type WebhookLimiter struct {
	bucket *TokenBucket
}

func NewWebhookLimiter(bucket *TokenBucket) *WebhookLimiter {
	return &WebhookLimiter{bucket: bucket}
}

func (l *WebhookLimiter) Allow(ctx context.Context, remoteAddr string) (*Result, error) {
	if l == nil || l.bucket == nil {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, "ratelimit:webhook:"+remoteAddr, webhookRate, webhookBurst)
}
