package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

func sampleTemplate(id string) *models.Template {
	return &models.Template{
		ID:            id,
		TemplateCode:  "GFGP-F",
		Version:       "v1",
		Title:         "Foundation",
		StructureType: models.StructureFoundation,
	}
}

func TestMemorySetGet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	_, ok := c.Get(ctx, "T1")
	assert.False(t, ok)

	c.Set(ctx, sampleTemplate("T1"))
	c.Set(ctx, nil)
	c.Set(ctx, sampleTemplate(""))
	got, ok := c.Get(ctx, "T1")
	require.True(t, ok)
	assert.Equal(t, "GFGP-F", got.TemplateCode)
	assert.Equal(t, 1, c.Len())
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("GFGP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GFGP_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, RedisOptions{Addr: addr, Prefix: "gfgp:test:", TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get(ctx, "missing-template")
	assert.False(t, ok)
	c.Set(ctx, sampleTemplate("T-redis"))
	got, ok := c.Get(ctx, "T-redis")
	require.True(t, ok)
	assert.Equal(t, models.StructureFoundation, got.StructureType)
}
