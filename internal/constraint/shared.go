package constraint

import (
	"math"

	"hideseek/internal/geometry"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
)

// 以下定义由求值器与答案计算共用，保证回答后再折叠时隐藏者仍在结果区域内。

// RadiusDisc：半径题与触手题使用的测地圆盘
func RadiusDisc(k geometry.Kernel, center orb.Point, radius float64, unit geometry.Unit) (geometry.Region, error) {
	return k.Buffer(center, radius, unit)
}

// ThermometerSites：下标 0 为 A（偏冷），1 为 B（偏热）
func ThermometerSites(p question.Thermometer) []orb.Point {
	return []orb.Point{p.A, p.B}
}

// 站点去重阈值（度）
const siteEpsilon = 1e-9

// 文档注释：触手题站点集合
// 背景：数据源可能返回重复地点；所选地点可能不在解析集合中（如手工输入）。
// 约束：按坐标去重并保持首次出现顺序；chosen 非空时返回其在集合中的下标（必要时追加），否则为 -1。
func TentacleSites(locs []question.Place, chosen *question.Place) ([]question.Place, int) {
	out := make([]question.Place, 0, len(locs)+1)
	indexOf := func(p orb.Point) int {
		for i, s := range out {
			if math.Abs(s.Point[0]-p[0]) < siteEpsilon && math.Abs(s.Point[1]-p[1]) < siteEpsilon {
				return i
			}
		}
		return -1
	}
	for _, l := range locs {
		if indexOf(l.Point) < 0 {
			out = append(out, l)
		}
	}
	if chosen == nil {
		return out, -1
	}
	idx := indexOf(chosen.Point)
	if idx < 0 {
		out = append(out, *chosen)
		idx = len(out) - 1
	}
	return out, idx
}

// Points 提取地点坐标
func Points(places []question.Place) []orb.Point {
	out := make([]orb.Point, len(places))
	for i, p := range places {
		out[i] = p.Point
	}
	return out
}

// NearestFeature：按球面距离取离 p 最近的要素，距离相同取靠前者
func NearestFeature(features []question.Place, p orb.Point) (question.Place, bool) {
	best, bestD := -1, math.MaxFloat64
	for i, f := range features {
		if d := geometry.DistanceMeters(p, f.Point); d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return question.Place{}, false
	}
	return features[best], true
}

// MeasuringSites：下标 0 为提问点，1 为最近要素
func MeasuringSites(point orb.Point, feature question.Place) []orb.Point {
	return []orb.Point{point, feature.Point}
}
