package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// fakeRedis implements the subset of redis.Cmdable used by RedisCache
type fakeRedis struct {
	redis.Cmdable
	data    map[string]string
	ttl     time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	switch v, ok := f.data[key]; {
	case f.failGet != nil:
		cmd.SetErr(f.failGet)
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(v)
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	cmd.SetVal("OK")
	return cmd
}

func sampleEntry() Entry {
	r := &types.ParsedResume{ID: "r1", PersonalInfo: types.PersonalInfo{Name: "Jane Doe"}, RawText: "Jane Doe"}
	r.EnsureSlices()
	r.RecomputeStructure()
	return Entry{Resume: r, Source: types.SourceLLM, CachedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, found, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "abc", sampleEntry()))
	entry, found, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Jane Doe", entry.Resume.PersonalInfo.Name)
	assert.Equal(t, 1, c.Len())
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c, err := NewRedisCache(fake, "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "deadbeef", sampleEntry()))
	assert.Contains(t, fake.data, "resume:parsed:deadbeef")
	assert.Equal(t, time.Hour, fake.ttl)

	entry, found, err := c.Get(ctx, "deadbeef")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.SourceLLM, entry.Source)
	assert.Equal(t, "r1", entry.Resume.ID)
	assert.True(t, entry.CachedAt.Equal(sampleEntry().CachedAt))
}

func TestRedisCache_Miss(t *testing.T) {
	c, err := NewRedisCache(newFakeRedis(), "custom:", 0)
	require.NoError(t, err)
	assert.Equal(t, "custom:x", c.Key("x"))

	entry, found, err := c.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, entry)
}

func TestRedisCache_Errors(t *testing.T) {
	fake := newFakeRedis()
	c, err := NewRedisCache(fake, "", 0)
	require.NoError(t, err)

	fake.data[c.Key("bad")] = "{not json"
	_, found, err := c.Get(context.Background(), "bad")
	assert.False(t, found)
	assert.ErrorContains(t, err, "corrupt cache entry")

	fake.failGet = errors.New("connection refused")
	_, _, err = c.Get(context.Background(), "bad")
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewRedisCache_NilClient(t *testing.T) {
	_, err := NewRedisCache(nil, "", 0)
	assert.Error(t, err)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, _, err := Connect(context.Background(), "not-a-url://", time.Minute)
	assert.ErrorContains(t, err, "invalid redis URL")
}

func TestMemoryCache_CopiesResumes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	entry := sampleEntry()
	entry.Resume.Sections.Skills = []string{"Go"}

	require.NoError(t, c.Set(ctx, "abc", entry))
	entry.Resume.PersonalInfo.Name = "changed after set"
	entry.Resume.Sections.Skills[0] = "changed after set"

	got, found, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Jane Doe", got.Resume.PersonalInfo.Name)
	assert.Equal(t, []string{"Go"}, got.Resume.Sections.Skills)

	got.Resume.Sections.Skills[0] = "changed after get"
	again, _, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, again.Resume.Sections.Skills)
}
