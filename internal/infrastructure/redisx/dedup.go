package redisx

import (
	"context"
	"fmt"
	"time"
)

// Deduper remembers which event ids a consumer has already handled.
type Deduper struct {
	rdb     KV
	service string
	ttl     time.Duration
}

func NewDeduper(rdb KV, service string) *Deduper {
	return &Deduper{rdb: rdb, service: service, ttl: TTLDedup}
}

// FirstSeen marks id as handled and reports whether this call was the first.
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.service, id), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup %s: %w", id, err)
	}
	return ok, nil
}
