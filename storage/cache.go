package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

// Cache wraps a Store with Redis-backed caching for the board-scoped read
// queries. Single-entity reads pass through untouched; any write to a board
// or one of its lists or tasks evicts that board's cached collections.
type Cache struct {
	base  domain.Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base domain.Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	return c.base.GetBoard(ctx, id)
}

func (c *Cache) InsertBoard(ctx context.Context, b domain.Board) error {
	if err := c.base.InsertBoard(ctx, b); err != nil {
		return err
	}
	c.evict(ctx, b.ID)
	return nil
}

func (c *Cache) UpdateBoard(ctx context.Context, b domain.Board) error {
	if err := c.base.UpdateBoard(ctx, b); err != nil {
		return err
	}
	c.evict(ctx, b.ID)
	return nil
}

func (c *Cache) DeleteBoard(ctx context.Context, id string) error {
	if err := c.base.DeleteBoard(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) GetList(ctx context.Context, id string) (*domain.List, error) {
	return c.base.GetList(ctx, id)
}

func (c *Cache) ListsByBoard(ctx context.Context, boardID string) ([]domain.List, error) {
	if lists, ok := loadFromCache[[]domain.List](ctx, c.redis, listsCacheKey(boardID)); ok {
		return lists, nil
	}

	lists, err := c.base.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, listsCacheKey(boardID), lists)
	return lists, nil
}

func (c *Cache) InsertList(ctx context.Context, l domain.List) error {
	if err := c.base.InsertList(ctx, l); err != nil {
		return err
	}
	c.evict(ctx, l.BoardID)
	return nil
}

func (c *Cache) UpdateList(ctx context.Context, l domain.List) error {
	if err := c.base.UpdateList(ctx, l); err != nil {
		return err
	}
	c.evict(ctx, l.BoardID)
	return nil
}

func (c *Cache) DeleteList(ctx context.Context, id string) error {
	// The delete only carries the list id, so resolve the owning board
	// before the row disappears.
	boardID := ""
	if l, err := c.base.GetList(ctx, id); err == nil && l != nil {
		boardID = l.BoardID
	}
	if err := c.base.DeleteList(ctx, id); err != nil {
		return err
	}
	if boardID != "" {
		c.evict(ctx, boardID)
	}
	return nil
}

func (c *Cache) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) TasksByList(ctx context.Context, listID string) ([]domain.Task, error) {
	return c.base.TasksByList(ctx, listID)
}

func (c *Cache) TasksByBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	if tasks, ok := loadFromCache[[]domain.Task](ctx, c.redis, tasksCacheKey(boardID)); ok {
		return tasks, nil
	}

	tasks, err := c.base.TasksByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, tasksCacheKey(boardID), tasks)
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.BoardID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task) error {
	if err := c.base.UpdateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.BoardID)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	boardID := ""
	if t, err := c.base.GetTask(ctx, id); err == nil && t != nil {
		boardID = t.BoardID
	}
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	if boardID != "" {
		c.evict(ctx, boardID)
	}
	return nil
}

func loadFromCache[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var zero T
	if client == nil {
		return zero, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = client.Del(ctx, key).Err()
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		_ = client.Del(ctx, key).Err()
		return zero, false
	}
	return v, true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, listsCacheKey(boardID), tasksCacheKey(boardID)).Result()
}

func listsCacheKey(boardID string) string {
	return "lists:" + boardID
}

func tasksCacheKey(boardID string) string {
	return "tasks:" + boardID
}
