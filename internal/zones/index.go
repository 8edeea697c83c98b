package zones

import (
	"context"
	"sort"

	"hideseek/internal/lookup"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type zoneEntry struct {
	zone  lookup.Zone
	bound orb.Bound
}

// 文档注释：内存索引（包围盒候选 → 点入多边形命中；地点按类别建 KD-Tree）
// 背景：GeoJSON 快照常驻内存，查询无 I/O；同时满足三类 lookup 提供方接口。
// 约束：构建后只读，可并发查询；同一点命中多个分区时取文件顺序中的第一个。
type Index struct {
	zones  map[string][]zoneEntry
	places map[string]*kdTree
	snap   *Snapshot
}

var (
	_ lookup.LocationProvider = (*Index)(nil)
	_ lookup.ZoneProvider     = (*Index)(nil)
	_ lookup.FeatureProvider  = (*Index)(nil)
)

func NewIndex(snap *Snapshot) *Index {
	ix := &Index{zones: map[string][]zoneEntry{}, places: map[string]*kdTree{}, snap: snap}
	if snap == nil {
		return ix
	}
	for _, z := range snap.Zones {
		ix.zones[z.Category] = append(ix.zones[z.Category], zoneEntry{zone: z, bound: z.Region.Bound()})
	}
	byCat := map[string][]Place{}
	for _, p := range snap.Places {
		byCat[p.Category] = append(byCat[p.Category], p)
	}
	for cat, ps := range byCat {
		ix.places[cat] = buildKD(ps)
	}
	return ix
}

// ZoneAt：包含 p 的分区；边界上的点视为在内
func (ix *Index) ZoneAt(ctx context.Context, category string, p orb.Point) (lookup.Zone, error) {
	if err := ctx.Err(); err != nil {
		return lookup.Zone{}, err
	}
	for _, e := range ix.zones[category] {
		if !e.bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(e.zone.Region, p) {
			return e.zone, nil
		}
	}
	return lookup.Zone{}, lookup.ErrNotFound
}

// Locations：center 周围 meters 米内的同类地点
func (ix *Index) Locations(ctx context.Context, category string, center orb.Point, meters float64) ([]question.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := ix.places[category]
	if !ok {
		return []question.Place{}, nil
	}
	idx := t.within(center, meters)
	out := make([]question.Place, 0, len(idx))
	for _, i := range idx {
		out = append(out, question.Place{Name: t.places[i].Name, Point: t.places[i].Point})
	}
	return out, nil
}

// Features：离 near 最近的同类要素（至多一个）
func (ix *Index) Features(ctx context.Context, category string, near orb.Point) ([]question.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := ix.places[category]
	if !ok {
		return []question.Place{}, nil
	}
	i, _ := t.nearest(near)
	if i < 0 {
		return []question.Place{}, nil
	}
	return []question.Place{{Name: t.places[i].Name, Point: t.places[i].Point}}, nil
}

// Categories 返回分区类别与地点类别（各自排序）
func (ix *Index) Categories() (zoneCats, placeCats []string) {
	for c := range ix.zones {
		zoneCats = append(zoneCats, c)
	}
	for c := range ix.places {
		placeCats = append(placeCats, c)
	}
	sort.Strings(zoneCats)
	sort.Strings(placeCats)
	return zoneCats, placeCats
}
