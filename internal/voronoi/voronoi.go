// 包 voronoi：把包围区域划分为离各站点最近的单元，供温度计/触手/测量类问题选边
package voronoi

import (
	"fmt"
	"math"

	"hideseek/internal/geometry"

	"github.com/paulmach/orb"
)

// ErrCoincidentSites：存在重合站点，调用方应视为“无约束”
var ErrCoincidentSites = fmt.Errorf("%w: coincident sites", geometry.ErrDegenerateInput)

// 填充下限（度）：两个极近站点也能得到可用的划分
const minPadding = 0.05

// 文档注释：局部等距圆柱坐标系
// 背景：经度按站点平均纬度的余弦缩放，使平面距离近似地面距离；划分与最近站点判定共用同一度量。
// 约束：仅依赖站点集合，保证 Partition 与 Nearest 对同一组站点得到一致结果。
type frame struct {
	scale float64
}

func newFrame(sites []orb.Point) frame {
	sum := 0.0
	for _, s := range sites {
		sum += s[1]
	}
	scale := math.Cos(sum / float64(len(sites)) * math.Pi / 180)
	if scale < 0.01 {
		scale = 0.01
	}
	return frame{scale: scale}
}

func (f frame) project(p orb.Point) orb.Point   { return orb.Point{p[0] * f.scale, p[1]} }
func (f frame) unproject(p orb.Point) orb.Point { return orb.Point{p[0] / f.scale, p[1]} }

// 文档注释：Voronoi 划分
// 背景：对每个站点用与其余站点的垂直平分线依次裁剪填充后的包围盒，得到凸单元；k 个站点时复杂度 O(k²)，问题场景下 k 很小。
// 约束：填充量 = max(3×站点最大两两跨度, minPadding)；单元覆盖 bound 但不裁剪到 bound；重合站点返回 ErrCoincidentSites。
func Partition(sites []orb.Point, bound orb.Bound) ([]geometry.Region, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w: no sites", geometry.ErrDegenerateInput)
	}
	for _, s := range sites {
		if !geometry.ValidPoint(s) {
			return nil, fmt.Errorf("%w: site %v", geometry.ErrDegenerateInput, s)
		}
	}
	f := newFrame(sites)
	proj := make([]orb.Point, len(sites))
	for i, s := range sites {
		proj[i] = f.project(s)
	}
	span := 0.0
	for i := range proj {
		for j := i + 1; j < len(proj); j++ {
			d := dist(proj[i], proj[j])
			if d < 1e-12 {
				return nil, ErrCoincidentSites
			}
			span = math.Max(span, d)
		}
	}
	// 零值包围盒表示“只按站点划分”
	box := orb.Bound{Min: proj[0], Max: proj[0]}
	if bound != (orb.Bound{}) {
		box = box.Union(orb.Bound{Min: f.project(bound.Min), Max: f.project(bound.Max)})
	}
	for _, p := range proj {
		box = box.Extend(p)
	}
	box = box.Pad(math.Max(3*span, minPadding))

	cells := make([]geometry.Region, len(sites))
	for i := range proj {
		cell := []orb.Point{box.Min, {box.Max[0], box.Min[1]}, box.Max, {box.Min[0], box.Max[1]}}
		for j := range proj {
			if i == j {
				continue
			}
			cell = clipHalfPlane(cell, proj[i], proj[j])
		}
		ring := make(orb.Ring, 0, len(cell)+1)
		for _, p := range cell {
			ring = append(ring, f.unproject(p))
		}
		if len(ring) < 3 {
			cells[i] = geometry.Empty()
			continue
		}
		ring = append(ring, ring[0])
		cells[i] = geometry.Region{orb.Polygon{ring}}
	}
	return cells, nil
}

// Nearest：按与 Partition 相同的度量返回最近站点下标，距离相同取较小下标；空集合返回 -1
func Nearest(sites []orb.Point, p orb.Point) int {
	if len(sites) == 0 {
		return -1
	}
	f := newFrame(sites)
	q := f.project(p)
	best, bestD := -1, math.MaxFloat64
	for i, s := range sites {
		d := dist(f.project(s), q)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func dist(a, b orb.Point) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

// clipHalfPlane：保留凸多边形中离 a 不比离 b 远的部分（Sutherland–Hodgman 单边裁剪）
func clipHalfPlane(poly []orb.Point, a, b orb.Point) []orb.Point {
	// 半平面 n·x <= c，n = b − a，c = (|b|² − |a|²)/2
	n := orb.Point{b[0] - a[0], b[1] - a[1]}
	c := (b[0]*b[0] + b[1]*b[1] - a[0]*a[0] - a[1]*a[1]) / 2
	side := func(p orb.Point) float64 { return n[0]*p[0] + n[1]*p[1] - c }

	var out []orb.Point
	for i := range poly {
		cur := poly[i]
		next := poly[(i+1)%len(poly)]
		sc, sn := side(cur), side(next)
		if sc <= 0 {
			out = append(out, cur)
		}
		if (sc < 0 && sn > 0) || (sc > 0 && sn < 0) {
			t := sc / (sc - sn)
			out = append(out, orb.Point{cur[0] + t*(next[0]-cur[0]), cur[1] + t*(next[1]-cur[1])})
		}
	}
	return out
}
