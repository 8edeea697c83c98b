package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/metrics"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
)

// Providers：三类数据源，任一为 nil 时对应查询记为不可用
type Providers struct {
	Locations LocationProvider
	Zones     ZoneProvider
	Features  FeatureProvider
}

const defaultConcurrency = 8

// 文档注释：查询解析器
// 背景：折叠本身同步且无 I/O，因此所有外部查询在折叠前并发完成、写入 Lookups。
// 约束：单题失败只记录在 Failures 中；仅在 ctx 取消时返回整体错误；结果经 Cache 序列化缓存。
type Resolver struct {
	p     Providers
	cache Cache
	limit int
	log   *slog.Logger
}

func NewResolver(p Providers, cache Cache, limit int, log *slog.Logger) *Resolver {
	if limit <= 0 {
		limit = defaultConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{p: p, cache: cache, limit: limit, log: log}
}

// 文档注释：并发解析一组问题所需的外部数据
// 背景：待回答问题也会被解析，以便隐藏者模式自动作答；hider 非空时额外解析匹配题中隐藏者所在分区。
// 约束：未知/畸形问题不解析；同一结果映射只在互斥锁内写入；不设查询时限，见 ResolveWithin。
func (r *Resolver) Resolve(ctx context.Context, qs []question.Question, hider *orb.Point) (Lookups, error) {
	return r.ResolveWithin(ctx, 0, qs, hider)
}

// 文档注释：限时解析
// 背景：查询阶段有独立时限；时限到期时已完成的结果照常返回，未完成的题记入 Failures，由折叠逐题跳过。
// 约束：timeout<=0 不设时限；仅当调用方 ctx 本身结束（请求取消或其自身截止）时返回错误。
func (r *Resolver) ResolveWithin(ctx context.Context, timeout time.Duration, qs []question.Question, hider *orb.Point) (Lookups, error) {
	lctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := r.resolve(lctx, qs, hider)
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.LookupFailTotal.WithLabelValues("deadline").Inc()
		r.log.Warn("lookup_deadline", "timeout", timeout, "failures", len(out.Failures))
		return out, nil
	}
	return out, err
}

func (r *Resolver) resolve(ctx context.Context, qs []question.Question, hider *orb.Point) (Lookups, error) {
	out := New()
	var mu sync.Mutex
	record := func(fn func(l *Lookups)) {
		mu.Lock()
		fn(&out)
		mu.Unlock()
	}
	fail := func(key, what string, err error) {
		metrics.LookupFailTotal.WithLabelValues(what).Inc()
		r.log.Warn("lookup_failed", "key", key, "lookup", what, "err", err)
		record(func(l *Lookups) { l.Failures[key] = fmt.Errorf("%w: %s: %v", ErrLookupUnavailable, what, err) })
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, q := range qs {
		q := q
		switch p := q.Params.(type) {
		case question.Tentacles:
			g.Go(func() error {
				places, err := r.locations(gctx, p)
				if err != nil {
					fail(q.ID, "locations", err)
					return ctxErr(gctx)
				}
				record(func(l *Lookups) { l.Locations[q.ID] = places })
				return nil
			})
		case question.Matching:
			if geometry.IsEmpty(p.Zone) {
				g.Go(func() error {
					z, err := r.zoneAt(gctx, p.Category, p.Point)
					if err != nil {
						fail(q.ID, "zone", err)
						return ctxErr(gctx)
					}
					record(func(l *Lookups) { l.Zones[q.ID] = z })
					return nil
				})
			}
			if hider != nil && geometry.IsEmpty(p.Zone) {
				h := *hider
				g.Go(func() error {
					z, err := r.zoneAt(gctx, p.Category, h)
					if err != nil && !errors.Is(err, ErrNotFound) {
						fail(q.ID+hiderSuffix, "hider_zone", err)
						return ctxErr(gctx)
					}
					record(func(l *Lookups) { l.HiderZones[q.ID] = z })
					return nil
				})
			}
		case question.Measuring:
			g.Go(func() error {
				places, err := r.features(gctx, p.Category, p.Point)
				if err != nil {
					fail(q.ID, "features", err)
					return ctxErr(gctx)
				}
				record(func(l *Lookups) { l.Features[q.ID] = places })
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

func ctxErr(ctx context.Context) error { return ctx.Err() }

func (r *Resolver) locations(ctx context.Context, p question.Tentacles) ([]question.Place, error) {
	if r.p.Locations == nil {
		return nil, errors.New("no location provider")
	}
	meters, err := p.Unit.ToMeters(p.Radius)
	if err != nil {
		return nil, err
	}
	key := cacheKey("loc", p.Category, p.Center, meters)
	var places []question.Place
	if r.cached(ctx, key, &places) {
		return places, nil
	}
	begin := time.Now()
	places, err = r.p.Locations.Locations(ctx, p.Category, p.Center, meters)
	metrics.LookupDurationMs.WithLabelValues("locations").Observe(float64(time.Since(begin).Milliseconds()))
	if err != nil {
		return nil, err
	}
	// 只保留半径内的地点，答案计算依赖这一点
	within := make([]question.Place, 0, len(places))
	for _, pl := range places {
		if geometry.DistanceMeters(p.Center, pl.Point) <= meters {
			within = append(within, pl)
		}
	}
	r.store(ctx, key, within)
	return within, nil
}

func (r *Resolver) zoneAt(ctx context.Context, category string, p orb.Point) (Zone, error) {
	if r.p.Zones == nil {
		return Zone{}, errors.New("no zone provider")
	}
	key := cacheKey("zone", category, p, 0)
	var z Zone
	if r.cached(ctx, key, &z) {
		if !z.Found() {
			return z, ErrNotFound
		}
		return z, nil
	}
	begin := time.Now()
	z, err := r.p.Zones.ZoneAt(ctx, category, p)
	metrics.LookupDurationMs.WithLabelValues("zone").Observe(float64(time.Since(begin).Milliseconds()))
	if errors.Is(err, ErrNotFound) {
		r.store(ctx, key, Zone{})
		return Zone{}, err
	}
	if err != nil {
		return Zone{}, err
	}
	r.store(ctx, key, z)
	return z, nil
}

func (r *Resolver) features(ctx context.Context, category string, near orb.Point) ([]question.Place, error) {
	if r.p.Features == nil {
		return nil, errors.New("no feature provider")
	}
	key := cacheKey("feat", category, near, 0)
	var places []question.Place
	if r.cached(ctx, key, &places) {
		return places, nil
	}
	begin := time.Now()
	places, err := r.p.Features.Features(ctx, category, near)
	metrics.LookupDurationMs.WithLabelValues("features").Observe(float64(time.Since(begin).Milliseconds()))
	if err != nil {
		return nil, err
	}
	if places == nil {
		places = []question.Place{}
	}
	r.store(ctx, key, places)
	return places, nil
}

func (r *Resolver) cached(ctx context.Context, key string, dst any) bool {
	if r.cache == nil {
		return false
	}
	b, ok := r.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		r.log.Warn("lookup_cache_decode_error", "key", key, "err", err)
		return false
	}
	return true
}

func (r *Resolver) store(ctx context.Context, key string, v any) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("lookup_cache_encode_error", "key", key, "err", err)
		return
	}
	r.cache.Set(ctx, key, b)
}
