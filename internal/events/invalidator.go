package events

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/backend-pricing/internal/cache"
)

// RulesUpdatedPayload names the rule families an admin mutation touched.
type RulesUpdatedPayload struct {
	Families []string `json:"families"`
}

// CacheInvalidator drops cached rule families when rules.updated fires.
type CacheInvalidator struct {
	Cache *cache.Cache
}

func (n CacheInvalidator) Notify(ctx context.Context, event DomainEvent) error {
	if event.Topic != TopicRulesUpdated || n.Cache == nil {
		return nil
	}
	var p RulesUpdatedPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return err
	}
	if len(p.Families) == 0 {
		return nil
	}
	return n.Cache.Invalidate(ctx, p.Families...)
}
