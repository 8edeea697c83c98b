// 包 lookup：问题折叠前的外部数据解析（地点、分区、要素），结果以不可变值交给核心
package lookup

import (
	"context"
	"errors"
	"fmt"

	"hideseek/internal/geometry"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
)

var (
	// ErrLookupUnavailable：外部数据获取失败或缺失，对应步骤跳过
	ErrLookupUnavailable = errors.New("lookup unavailable")
	// ErrNotFound：提供方确认不存在（如点不在任何分区内）
	ErrNotFound = errors.New("lookup: not found")
)

// Zone：某类别下的分区多边形
type Zone struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Region   geometry.Region `json:"region"`
}

// Found：零值 Zone 表示“不在任何分区内”
func (z Zone) Found() bool { return z.ID != "" }

// LocationProvider：center 周围 meters 米内的同类地点
type LocationProvider interface {
	Locations(ctx context.Context, category string, center orb.Point, meters float64) ([]question.Place, error)
}

// ZoneProvider：包含 p 的分区；不存在时返回 ErrNotFound
type ZoneProvider interface {
	ZoneAt(ctx context.Context, category string, p orb.Point) (Zone, error)
}

// FeatureProvider：near 附近的同类要素，调用方从中取最近者
type FeatureProvider interface {
	Features(ctx context.Context, category string, near orb.Point) ([]question.Place, error)
}

const hiderSuffix = "/hider"

// 文档注释：已解析的查询结果
// 背景：核心不做 I/O，编排层预先解析并缓存后整体传入；按问题 ID 索引。
// 约束：Locations/Features 中存在键即表示集合已知（可以为空）；Failures 记录单题失败，主查询键为问题 ID，隐藏者分区键带 /hider 后缀。
type Lookups struct {
	Locations  map[string][]question.Place
	Zones      map[string]Zone
	Features   map[string][]question.Place
	HiderZones map[string]Zone
	Failures   map[string]error
}

// New 返回各映射已初始化的空结果
func New() Lookups {
	return Lookups{
		Locations:  map[string][]question.Place{},
		Zones:      map[string]Zone{},
		Features:   map[string][]question.Place{},
		HiderZones: map[string]Zone{},
		Failures:   map[string]error{},
	}
}

func (l Lookups) unavailable(key, what string) error {
	if err, ok := l.Failures[key]; ok && err != nil {
		if errors.Is(err, ErrLookupUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrLookupUnavailable, what, err)
	}
	return fmt.Errorf("%w: no %s resolved for question %s", ErrLookupUnavailable, what, key)
}

// LocationsFor：触手题的候选地点
func (l Lookups) LocationsFor(id string) ([]question.Place, error) {
	if ps, ok := l.Locations[id]; ok {
		return ps, nil
	}
	return nil, l.unavailable(id, "locations")
}

// ZoneFor：匹配题中包含提问点的分区
func (l Lookups) ZoneFor(id string) (Zone, error) {
	if z, ok := l.Zones[id]; ok && z.Found() {
		return z, nil
	}
	return Zone{}, l.unavailable(id, "zone")
}

// FeaturesFor：测量题的候选要素
func (l Lookups) FeaturesFor(id string) ([]question.Place, error) {
	if ps, ok := l.Features[id]; ok {
		return ps, nil
	}
	return nil, l.unavailable(id, "features")
}

// HiderZoneFor：隐藏者所在分区；零值 Zone 表示隐藏者不在任何分区
func (l Lookups) HiderZoneFor(id string) (Zone, error) {
	if z, ok := l.HiderZones[id]; ok {
		return z, nil
	}
	return Zone{}, l.unavailable(id+hiderSuffix, "hider zone")
}
