// 包 zones：分区与地点数据源（GeoJSON 快照内存索引 / PostGIS），实现 lookup 的三类提供方接口
package zones

import (
	"time"

	"hideseek/internal/lookup"

	"github.com/paulmach/orb"
)

// 文档注释：地点（带类别的具名点）
// 背景：触手题的同类地点与测量题的要素都来自同一张地点表。
// 约束：Point 为 WGS84 经纬度。
type Place struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Point    orb.Point `json:"point"`
}

// 加载结果快照：只读引用，供查询期共享
type Snapshot struct {
	Zones   []lookup.Zone
	Places  []Place
	BuiltAt time.Time
}
