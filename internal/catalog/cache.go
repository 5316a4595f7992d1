package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// Fetcher lists the templates of one channel.
type Fetcher interface {
	Fetch(ctx context.Context, channel models.Channel) ([]models.Template, error)
}

type entry struct {
	templates []models.Template
	err       error
}

// Cache memoises one catalog fetch per channel for the lifetime of a batch run.
// Concurrent lookups for the same channel share a single in-flight fetch. A
// failed fetch is remembered too so a broken catalog is not retried per item.
// Create one per batch and drop it afterwards.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[models.Channel]entry
}

var _ common.TemplateLookup = (*Cache)(nil)

// NewCache returns an empty cache backed by fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		entries: make(map[models.Channel]entry),
	}
}

// Templates returns the cached catalog of channel, fetching it on first use.
func (c *Cache) Templates(ctx context.Context, channel models.Channel) ([]models.Template, error) {
	c.mu.RLock()
	cached, ok := c.entries[channel]
	c.mu.RUnlock()
	if ok {
		return cached.templates, cached.err
	}

	v, _, _ := c.group.Do(string(channel), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[channel]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		templates, err := c.fetcher.Fetch(ctx, channel)
		fetched := entry{templates: templates, err: err}
		// a cancelled batch must not poison later lookups with its context error
		if ctx.Err() == nil {
			c.mu.Lock()
			c.entries[channel] = fetched
			c.mu.Unlock()
		}
		return fetched, nil
	})
	result := v.(entry)
	return result.templates, result.err
}

// Lookup implements common.TemplateLookup.
func (c *Cache) Lookup(ctx context.Context, channel models.Channel, id string) (*models.Template, error) {
	templates, err := c.Templates(ctx, channel)
	if err != nil {
		return nil, common.WrapResolution(fmt.Errorf("template %s: %v", id, err))
	}
	return find(templates, channel, id)
}
