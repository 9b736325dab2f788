package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"bookstore/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const bookKeyPrefix = "book:"

// BookCache is a read-through layer over the Postgres book read store. Single
// book lookups are cached; list pages always hit the database because their
// ordering depends on writes the cache cannot observe.
//
// Cache failures degrade to direct reads, they never fail a request.
type BookCache struct {
	inner queries.BookReadStore
	rdb   *redis.Client
	ttl   time.Duration
}

func NewBookCache(inner queries.BookReadStore, rdb *redis.Client, ttl time.Duration) *BookCache {
	return &BookCache{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *BookCache) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookView, error) {
	key := bookKeyPrefix + id.String()

	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var view queries.BookView
		if jerr := json.Unmarshal(payload, &view); jerr == nil {
			return &view, nil
		}
		// Corrupt entry, fall through to the database
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("book cache read failed", "book_id", id, "error", err.Error())
	}

	view, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, jerr := json.Marshal(view); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			slog.Warn("book cache write failed", "book_id", id, "error", serr.Error())
		}
	}

	return view, nil
}

func (c *BookCache) FindFirstPage(ctx context.Context, limit int32) ([]*queries.BookListItem, error) {
	return c.inner.FindFirstPage(ctx, limit)
}

func (c *BookCache) FindKeyset(ctx context.Context, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.BookListItem, error) {
	return c.inner.FindKeyset(ctx, lastCreatedAt, lastID, limit)
}

// Invalidate drops cached entries after a write touches their stock or
// discount columns. Best effort: a failed delete only delays freshness by ttl.
func (c *BookCache) Invalidate(ctx context.Context, bookIDs ...uuid.UUID) {
	if len(bookIDs) == 0 {
		return
	}
	keys := make([]string, len(bookIDs))
	for i, id := range bookIDs {
		keys[i] = bookKeyPrefix + id.String()
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("book cache invalidation failed", "keys", len(keys), "error", err.Error())
	}
}
