// Package rediscache provides a Redis-backed Analyzer decorator.
//
// Resolved markers serialize with go-json under
// "<prefix><structure>:<markerName>" keys and reconstruct through the
// marker registry on hit, so resolutions survive process restarts. Only
// registered marker types are eligible; requests for unregistered types
// pass straight through to the wrapped Analyzer. Hits hand back a fresh
// instance per call, unlike the in-memory Memo which pins identity, and
// marker state that does not survive a JSON round trip (unexported
// fields, values captured by custom resolution hooks) must stay on the
// in-memory decorator.
package rediscache

import (
	"context"
	"reflect"
	"time"

	j "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

// Config holds connection and keying configuration.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is prepended to all cache keys.
	Prefix string
	// TTL bounds the lifetime of stored resolutions. Zero means one hour.
	TTL time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "attrs:",
		TTL:    time.Hour,
	}
}

// Cache is a persistent Analyzer decorator.
type Cache struct {
	inner  attributeutils.Analyzer
	client *redis.Client
	config Config
}

// New connects with the default configuration.
func New(inner attributeutils.Analyzer) (*Cache, error) {
	return NewWithConfig(inner, DefaultConfig())
}

// NewWithConfig connects a dedicated client and verifies it with a ping.
func NewWithConfig(inner attributeutils.Analyzer, config Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(inner, client, config), nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of
// connection settings; only Prefix and TTL are read from config.
func NewWithClient(inner attributeutils.Analyzer, client *redis.Client, config Config) *Cache {
	return &Cache{inner: inner, client: client, config: config}
}

// Resolve serves registered markers from Redis when possible and stores
// fresh resolutions after delegating. Errors are never cached, and store
// failures do not fail the resolution.
func (c *Cache) Resolve(ctx context.Context, subject any, marker reflect.Type) (any, error) {
	name, registered := attributeutils.MarkerName(marker)
	structure := attributeutils.StructureName(subject)
	if !registered || structure == "" {
		return c.inner.Resolve(ctx, subject, marker)
	}

	key := c.config.Prefix + structure + ":" + name
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		if inst, ok := c.decode(marker, data); ok {
			return inst, nil
		}
		// Corrupt or stale-schema entry. Fall through and overwrite.
	}

	out, err := c.inner.Resolve(ctx, subject, marker)
	if err != nil {
		return nil, err
	}
	if payload, merr := j.Marshal(out); merr == nil {
		c.client.Set(ctx, key, payload, c.ttl())
	}
	return out, nil
}

func (c *Cache) decode(marker reflect.Type, data []byte) (any, bool) {
	for marker.Kind() == reflect.Pointer {
		marker = marker.Elem()
	}
	inst := reflect.New(marker)
	if err := j.Unmarshal(data, inst.Interface()); err != nil {
		return nil, false
	}
	return inst.Interface(), true
}

func (c *Cache) ttl() time.Duration {
	if c.config.TTL == 0 {
		return time.Hour
	}
	return c.config.TTL
}

// Invalidate drops the stored resolution for one structure and marker name.
func (c *Cache) Invalidate(ctx context.Context, structure, markerName string) error {
	return c.client.Del(ctx, c.config.Prefix+structure+":"+markerName).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error { return c.client.Close() }
