package lookup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hideseek/internal/geometry"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls    atomic.Int32
	places   []question.Place
	zone     Zone
	hiderAt  orb.Point
	failWith error
}

func (s *stubProvider) Locations(_ context.Context, _ string, _ orb.Point, _ float64) ([]question.Place, error) {
	s.calls.Add(1)
	return s.places, s.failWith
}

func (s *stubProvider) ZoneAt(_ context.Context, _ string, p orb.Point) (Zone, error) {
	s.calls.Add(1)
	if s.failWith != nil {
		return Zone{}, s.failWith
	}
	if p == s.hiderAt {
		return Zone{}, ErrNotFound
	}
	return s.zone, nil
}

func (s *stubProvider) Features(_ context.Context, _ string, _ orb.Point) ([]question.Place, error) {
	s.calls.Add(1)
	return s.places, s.failWith
}

var center = orb.Point{10, 53.55}

func questions() []question.Question {
	return []question.Question{
		{ID: "t", Status: question.Answered, Params: question.Tentacles{Center: center, Radius: 2, Unit: geometry.Kilometers, Category: "museum"}},
		{ID: "m", Status: question.Answered, Params: question.Matching{Point: center, Category: "district"}},
		{ID: "f", Status: question.Pending, Params: question.Measuring{Point: center, Category: "airport"}},
		{ID: "u", Status: question.Answered, Params: question.Unknown{Type: "photo"}},
	}
}

func TestResolve(t *testing.T) {
	near := question.Place{Name: "near", Point: orb.Point{10.01, 53.55}}
	far := question.Place{Name: "far", Point: orb.Point{10.5, 53.55}}
	sp := &stubProvider{
		places:  []question.Place{near, far},
		zone:    Zone{ID: "z1", Name: "Mitte", Category: "district", Region: geometry.FromBound(orb.Bound{Min: orb.Point{9.9, 53.5}, Max: orb.Point{10.1, 53.6}})},
		hiderAt: orb.Point{11, 54},
	}
	r := NewResolver(Providers{Locations: sp, Zones: sp, Features: sp}, nil, 2, nil)
	hider := orb.Point{11, 54}
	l, err := r.Resolve(context.Background(), questions(), &hider)
	require.NoError(t, err)

	locs, err := l.LocationsFor("t")
	require.NoError(t, err)
	assert.Equal(t, []question.Place{near}, locs, "places outside the radius are dropped")

	z, err := l.ZoneFor("m")
	require.NoError(t, err)
	assert.Equal(t, "z1", z.ID)

	hz, err := l.HiderZoneFor("m")
	require.NoError(t, err)
	assert.False(t, hz.Found())

	feats, err := l.FeaturesFor("f")
	require.NoError(t, err)
	assert.Len(t, feats, 2)
	assert.Empty(t, l.Failures)
}

func TestResolveRecordsFailures(t *testing.T) {
	sp := &stubProvider{failWith: errors.New("overpass timeout")}
	r := NewResolver(Providers{Locations: sp, Zones: sp}, nil, 0, nil)
	l, err := r.Resolve(context.Background(), questions(), nil)
	require.NoError(t, err)

	_, err = l.LocationsFor("t")
	assert.ErrorIs(t, err, ErrLookupUnavailable)
	assert.Contains(t, err.Error(), "overpass timeout")
	_, err = l.ZoneFor("m")
	assert.ErrorIs(t, err, ErrLookupUnavailable)
	_, err = l.FeaturesFor("f")
	assert.ErrorIs(t, err, ErrLookupUnavailable, "nil feature provider")
	_, err = l.HiderZoneFor("m")
	assert.ErrorIs(t, err, ErrLookupUnavailable, "hider not given")
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(Providers{}, nil, 1, nil)
	_, err := r.Resolve(ctx, questions(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// slowFeatures 直到 ctx 结束才返回
type slowFeatures struct{}

func (slowFeatures) Features(ctx context.Context, _ string, _ orb.Point) ([]question.Place, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolveWithinKeepsResolvedOnDeadline(t *testing.T) {
	sp := &stubProvider{zone: Zone{ID: "z1", Category: "district"}}
	r := NewResolver(Providers{Zones: sp, Features: slowFeatures{}}, nil, 4, nil)
	qs := []question.Question{
		{ID: "m", Status: question.Answered, Params: question.Matching{Point: center, Category: "district"}},
		{ID: "f", Status: question.Answered, Params: question.Measuring{Point: center, Category: "airport"}},
	}
	begin := time.Now()
	l, err := r.ResolveWithin(context.Background(), 50*time.Millisecond, qs, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), 2*time.Second)

	z, err := l.ZoneFor("m")
	require.NoError(t, err)
	assert.Equal(t, "z1", z.ID)

	_, err = l.FeaturesFor("f")
	assert.ErrorIs(t, err, ErrLookupUnavailable)
	assert.Contains(t, err.Error(), "deadline")
}

func TestResolveWithinCallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	r := NewResolver(Providers{Features: slowFeatures{}}, nil, 1, nil)
	qs := []question.Question{{ID: "f", Status: question.Answered, Params: question.Measuring{Point: center, Category: "airport"}}}
	_, err := r.ResolveWithin(ctx, 5*time.Second, qs, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveUsesCache(t *testing.T) {
	sp := &stubProvider{zone: Zone{ID: "z1"}}
	r := NewResolver(Providers{Zones: sp}, NewMemoryCache(16, time.Minute), 1, nil)
	qs := []question.Question{{ID: "m", Status: question.Answered, Params: question.Matching{Point: center, Category: "district"}}}
	for i := 0; i < 3; i++ {
		l, err := r.Resolve(context.Background(), qs, nil)
		require.NoError(t, err)
		assert.Equal(t, "z1", l.Zones["m"].ID)
	}
	assert.Equal(t, int32(1), sp.calls.Load())
}

func TestInlineZoneSkipsLookup(t *testing.T) {
	sp := &stubProvider{zone: Zone{ID: "z1"}}
	r := NewResolver(Providers{Zones: sp}, nil, 1, nil)
	zone := geometry.FromBound(orb.Bound{Min: orb.Point{9, 53}, Max: orb.Point{11, 54}})
	qs := []question.Question{{ID: "m", Status: question.Answered, Params: question.Matching{Point: center, Category: "custom", Zone: zone}}}
	hider := orb.Point{10, 53.5}
	_, err := r.Resolve(context.Background(), qs, &hider)
	require.NoError(t, err)
	assert.Equal(t, int32(0), sp.calls.Load())
}

func TestLRU(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)
	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired")
	assert.Equal(t, 1, c.Len())
}

func TestChainBackfills(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryCache(4, time.Minute)
	back := NewMemoryCache(4, time.Minute)
	back.Set(ctx, "k", []byte("v"))
	chain := Chain{front, back, NewRedisCache(nil, "hs:", time.Minute)}

	v, ok := chain.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	v, ok = front.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	_, ok = chain.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestGeohash(t *testing.T) {
	assert.Equal(t, "u4pruydqqv", encodeGeohash(57.64911, 10.40744, 10))
	assert.NotEqual(t, cacheKey("loc", "museum", center, 1000), cacheKey("loc", "museum", center, 2000))
	assert.NotEqual(t, cacheKey("zone", "a", center, 0), cacheKey("zone", "b", center, 0))
}
