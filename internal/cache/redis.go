package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

const defaultPrefix = "gfgp:template:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL of zero keeps entries until evicted by the server.
	TTL time.Duration
}

// Redis shares parsed templates between server instances.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

// Get treats any redis or decode failure as a miss.
func (r *Redis) Get(ctx context.Context, id string) (*models.Template, bool) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("redis cache: get %s: %v", id, err)
		}
		return nil, false
	}
	var t models.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		log.Printf("redis cache: decode %s: %v", id, err)
		return nil, false
	}
	return &t, true
}

func (r *Redis) Set(ctx context.Context, t *models.Template) {
	if t == nil || t.ID == "" {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		log.Printf("redis cache: encode %s: %v", t.ID, err)
		return
	}
	if err := r.client.Set(ctx, r.prefix+t.ID, raw, r.ttl).Err(); err != nil {
		log.Printf("redis cache: set %s: %v", t.ID, err)
	}
}

func (r *Redis) Close() error { return r.client.Close() }
