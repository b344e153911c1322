package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cached struct {
	next  Generator
	cache *lru.Cache[string, Result]
}

// WithCache memoizes successful generations keyed by the full request.
// Failures are never cached.
func WithCache(next Generator, size int) (Generator, error) {
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("create narrative cache: %w", err)
	}
	return &cached{next: next, cache: c}, nil
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Generate(ctx context.Context, req Request) (*Result, error) {
	key := cacheKey(c.next.Name(), req)
	if res, ok := c.cache.Get(key); ok {
		return &res, nil
	}

	res, err := c.next.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *res)
	return res, nil
}

func cacheKey(provider string, req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%g", provider, req.System, req.Prompt, req.MaxTokens, req.Temperature)
	return hex.EncodeToString(h.Sum(nil))
}
