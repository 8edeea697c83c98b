package geometry

import (
	"fmt"
	"math"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// 半径上限：接近对跖点时圆盘退化，截断到安全值
var maxBufferMeters = 0.98 * math.Pi * orb.EarthRadius

// 文档注释：测地圆盘缓冲
// 背景：按球面目的点公式沿方位角逆时针取点，公里/英里/米换算在任意纬度都保持正确。
// 约束：distance=0 返回测度为零的点区域（空多面）；超过上限的半径被截断；
// 包含单个极点的圆经由极点闭合；同时包含两极时取对跖小圆的世界掩膜；跨越 ±180° 时按世界副本裁剪拆分。
func (k *ClipKernel) Buffer(center orb.Point, distance float64, unit Unit) (Region, error) {
	if !ValidPoint(center) {
		return Empty(), fmt.Errorf("%w: center %v", ErrDegenerateInput, center)
	}
	m, err := unit.ToMeters(distance)
	if err != nil {
		return Empty(), err
	}
	if m == 0 {
		return Empty(), nil
	}
	if m > maxBufferMeters {
		m = maxBufferMeters
	}
	north := geo.DistanceHaversine(center, orb.Point{center[0], 90}) < m
	south := geo.DistanceHaversine(center, orb.Point{center[0], -90}) < m

	steps := k.opts.BufferSteps
	ring := make(orb.Ring, 0, steps+3)
	prev := 0.0
	for i := 0; i < steps; i++ {
		p := geo.PointAtBearingAndDistance(center, -360*float64(i)/float64(steps), m)
		if i > 0 {
			p[0] = unwrap(p[0], prev)
		}
		prev = p[0]
		ring = append(ring, p)
	}

	switch {
	case north && south:
		// 圆外部是对跖点附近的小帽，圆盘 = 世界 − 小帽
		ring = append(ring, ring[0])
		capRegion, err := k.splitWorld(orientRings(Region{orb.Polygon{ring}}))
		if err != nil {
			return Empty(), err
		}
		return k.WorldMask(capRegion)
	case north || south:
		pole := 90.0
		if south {
			pole = -90
		}
		if capRing, ok := polarCap(ring, pole); ok {
			out := orientRings(Region{orb.Polygon{capRing}})
			if err := Validate(out); err != nil {
				return Empty(), err
			}
			return out, nil
		}
		last := ring[len(ring)-1][0]
		end := unwrap(ring[0][0], last)
		ring = append(ring, orb.Point{end, ring[0][1]}, orb.Point{end, pole}, orb.Point{ring[0][0], pole}, ring[0])
	default:
		ring = append(ring, ring[0])
	}
	return k.splitWorld(orientRings(Region{orb.Polygon{ring}}))
}

// 文档注释：极冠闭合
// 背景：包含极点的圆边界经度单调，绕行一周恰好跨越一次 ±180°；从该处切开，沿 ±180° 与极点闭合即得单个多边形。
// 约束：接缝纬度按跨越边线性插值；找不到唯一接缝时返回 false，由调用方按世界副本拆分。
func polarCap(ring orb.Ring, pole float64) (orb.Ring, bool) {
	n := len(ring)
	pts := make([]orb.Point, n)
	for i, p := range ring {
		pts[i] = orb.Point{wrapLon(p[0]), p[1]}
	}
	seam := -1
	for i := 0; i < n; i++ {
		if math.Abs(pts[(i+1)%n][0]-pts[i][0]) > 180 {
			if seam >= 0 {
				return nil, false
			}
			seam = i
		}
	}
	if seam < 0 {
		return nil, false
	}
	seq := make([]orb.Point, 0, n)
	for i := 1; i <= n; i++ {
		seq = append(seq, pts[(seam+i)%n])
	}
	first, last := seq[0], seq[n-1]
	startX, endX := -180.0, 180.0
	target := first[0] + 360
	if first[0] > last[0] {
		startX, endX = 180, -180
		target = first[0] - 360
	}
	lat := last[1]
	if d := target - last[0]; d != 0 {
		lat += (endX - last[0]) / d * (first[1] - last[1])
	}

	out := make(orb.Ring, 0, n+5)
	add := func(p orb.Point) {
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	add(orb.Point{startX, lat})
	for _, p := range seq {
		add(p)
	}
	add(orb.Point{endX, lat})
	add(orb.Point{endX, pole})
	add(orb.Point{startX, pole})
	add(orb.Point{startX, lat})
	return out, true
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func unwrap(lon, ref float64) float64 {
	for lon-ref > 180 {
		lon -= 360
	}
	for lon-ref < -180 {
		lon += 360
	}
	return lon
}

// splitWorld：经度越界的多边形按 -360/0/+360 平移后与世界包围盒求交，拼回合法经纬度范围
func (k *ClipKernel) splitWorld(r Region) (Region, error) {
	b := r.Bound()
	if b.Min[0] >= -180 && b.Max[0] <= 180 && b.Min[1] >= -90 && b.Max[1] <= 90 {
		return r, nil
	}
	world := FromBound(World)
	out := Region{}
	for _, shift := range []float64{-360, 0, 360} {
		moved := translate(r, shift)
		if !moved.Bound().Intersects(World) {
			continue
		}
		piece, err := construct(polyclip.INTERSECTION, moved, world)
		if err != nil {
			return Empty(), err
		}
		out = append(out, piece...)
	}
	if IsEmpty(out) {
		return Empty(), fmt.Errorf("%w: world split lost the disc", ErrInvalidGeometry)
	}
	if err := Validate(out); err != nil {
		return Empty(), err
	}
	return out, nil
}

func translate(r Region, dx float64) Region {
	out := Clone(r)
	for _, p := range out {
		for _, ring := range p {
			for i := range ring {
				ring[i][0] += dx
			}
		}
	}
	return out
}
