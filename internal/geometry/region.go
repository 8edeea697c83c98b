// 包 geometry：候选区域的几何内核（缓冲、并/交/差、世界掩膜、点包含），经纬度坐标，内部用球面距离
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Region：一个或多个简单多边形（可带洞），按 GeoJSON 约定外环逆时针、洞顺时针
// 约束：空多面即 Empty，是合法的终态值而非错误
type Region = orb.MultiPolygon

var (
	// ErrInvalidGeometry：自相交/退化拓扑，修复失败后返回
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrDegenerateInput：重合站点、非法半径、非有限坐标等
	ErrDegenerateInput = errors.New("degenerate input")
)

// World：整个经纬度平面
var World = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Empty 返回空区域
func Empty() Region { return Region{} }

// IsEmpty 判断区域是否为空集
func IsEmpty(r Region) bool {
	for _, p := range r {
		if len(p) > 0 && len(p[0]) >= 4 {
			return false
		}
	}
	return true
}

// FromBound 把包围盒转换为单多边形区域（逆时针外环）
func FromBound(b orb.Bound) Region {
	return Region{orb.Polygon{b.ToRing()}}
}

func Clone(r Region) Region {
	if r == nil {
		return Region{}
	}
	return r.Clone()
}

// NumVertices 统计全部环的顶点数，用于复杂度预算
func NumVertices(r Region) int {
	n := 0
	for _, p := range r {
		for _, ring := range p {
			n += len(ring)
		}
	}
	return n
}

// Area 返回球面面积（平方米）
func Area(r Region) float64 {
	if IsEmpty(r) {
		return 0
	}
	return geo.Area(r)
}

// DistanceMeters：Haversine 球面距离
func DistanceMeters(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// ValidPoint 判定经纬度是否有限且在合法范围内
func ValidPoint(p orb.Point) bool {
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
		return false
	}
	return p[0] >= -180 && p[0] <= 180 && p[1] >= -90 && p[1] <= 90
}

// 文档注释：区域合法性校验
// 背景：上游数据（用户绘制/外部边界）可能带自相交或未闭合环；布尔运算输出也需复核后才能进入折叠。
// 约束：自相交检查为 O(n²)，超过 selfCheckLimit 个顶点的环只做结构检查。
func Validate(r Region) error {
	for i, p := range r {
		if len(p) == 0 {
			return fmt.Errorf("%w: polygon %d has no rings", ErrInvalidGeometry, i)
		}
		for j, ring := range p {
			if len(ring) < 4 {
				return fmt.Errorf("%w: polygon %d ring %d has %d points", ErrInvalidGeometry, i, j, len(ring))
			}
			if ring[0] != ring[len(ring)-1] {
				return fmt.Errorf("%w: polygon %d ring %d not closed", ErrInvalidGeometry, i, j)
			}
			for _, pt := range ring {
				if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
					return fmt.Errorf("%w: polygon %d ring %d has non-finite coordinate", ErrInvalidGeometry, i, j)
				}
			}
			if len(ring) <= selfCheckLimit && ringSelfIntersects(ring) {
				return fmt.Errorf("%w: polygon %d ring %d self-intersects", ErrInvalidGeometry, i, j)
			}
		}
	}
	return nil
}

const selfCheckLimit = 4096

// 仅检测真正的交叉；共享端点或共线接触不算（布尔运算输出的收缩点允许存在）
func ringSelfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[i+1]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(a1, a2, ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(a, b, c orb.Point) float64 {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	if math.Abs(v) < 1e-18 {
		return 0
	}
	return v
}

// 平面有向面积（逆时针为正）
func ringSignedArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	ox, oy := r[0][0], r[0][1]
	s := 0.0
	for i := 1; i < len(r)-1; i++ {
		s += (r[i][0]-ox)*(r[i+1][1]-oy) - (r[i+1][0]-ox)*(r[i][1]-oy)
	}
	return s / 2
}

// orientRings：外环逆时针、洞顺时针；就地修改，调用方需持有副本
func orientRings(r Region) Region {
	for _, p := range r {
		for j, ring := range p {
			a := ringSignedArea(ring)
			if (j == 0 && a < 0) || (j > 0 && a > 0) {
				ring.Reverse()
			}
		}
	}
	return r
}
