package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second

	courseTreeTTL = 1 * time.Hour
	progressTTL   = 10 * time.Minute
)

type Cache struct {
	client  *redis.Client
	enabled bool
}

func NewCache(addr string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:  client,
		enabled: true,
	}, nil
}

// operationContext creates a context with timeout for Redis operations
func (c *Cache) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultOperationTimeout)
}

func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(key string, dest interface{}) error {
	if !c.enabled {
		return fmt.Errorf("cache disabled")
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("key not found")
	} else if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Delete(key string) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeletePattern(pattern string) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Exists(key string) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	val, err := c.client.Exists(ctx, key).Result()
	return val > 0, err
}

func (c *Cache) FlushAll() error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.FlushAll(ctx).Err()
}

func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) CacheCourseTree(courseID uint, tree interface{}) error {
	return c.Set(fmt.Sprintf("course:tree:%d", courseID), tree, courseTreeTTL)
}

func (c *Cache) GetCachedCourseTree(courseID uint, dest interface{}) error {
	return c.Get(fmt.Sprintf("course:tree:%d", courseID), dest)
}

// InvalidateCourse drops the cached tree and every learner progress entry for
// the course; structure edits change the item count behind the percentages.
func (c *Cache) InvalidateCourse(courseID uint) error {
	if err := c.Delete(fmt.Sprintf("course:tree:%d", courseID)); err != nil {
		return err
	}
	return c.DeletePattern(fmt.Sprintf("progress:%d:*", courseID))
}

func (c *Cache) CacheProgress(courseID, userID uint, percentage int) error {
	return c.Set(fmt.Sprintf("progress:%d:%d", courseID, userID), percentage, progressTTL)
}

func (c *Cache) GetCachedProgress(courseID, userID uint) (int, error) {
	var percentage int
	if err := c.Get(fmt.Sprintf("progress:%d:%d", courseID, userID), &percentage); err != nil {
		return 0, err
	}
	return percentage, nil
}

func (c *Cache) InvalidateProgress(courseID, userID uint) error {
	return c.Delete(fmt.Sprintf("progress:%d:%d", courseID, userID))
}
