package geometry

import (
	"fmt"
	"math"
	"sort"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// 面积小于该值（平方度）的环视为布尔运算产生的碎片
const minRingArea = 1e-14

// Intersection：a ∩ b；空集返回 Empty
func (k *ClipKernel) Intersection(a, b Region) (Region, error) {
	if IsEmpty(a) || IsEmpty(b) {
		return Empty(), nil
	}
	if !a.Bound().Intersects(b.Bound()) {
		return Empty(), nil
	}
	if a.Equal(b) {
		return Clone(a), nil
	}
	return k.run(polyclip.INTERSECTION, a, b)
}

// Difference：a − b
func (k *ClipKernel) Difference(a, b Region) (Region, error) {
	if IsEmpty(a) {
		return Empty(), nil
	}
	if IsEmpty(b) || !a.Bound().Intersects(b.Bound()) {
		return Clone(a), nil
	}
	if a.Equal(b) {
		return Empty(), nil
	}
	return k.run(polyclip.DIFFERENCE, a, b)
}

// Union：依次合并；任一步失败时返回已合并部分与错误
func (k *ClipKernel) Union(regions ...Region) (Region, error) {
	acc := Empty()
	for _, r := range regions {
		if IsEmpty(r) {
			continue
		}
		if IsEmpty(acc) {
			fixed, err := k.Repair(r)
			if err != nil {
				return acc, err
			}
			acc = fixed
			continue
		}
		next, err := k.run(polyclip.UNION, acc, r)
		if err != nil {
			return acc, err
		}
		acc = next
	}
	return acc, nil
}

// 文档注释：拓扑修复
// 背景：上游数据可能自相交；与世界包围盒求交会按奇偶规则重建内部，相当于一次零宽缓冲。
// 约束：修复后仍不合法则返回原输入与 ErrInvalidGeometry，由调用方记录并跳过。
func (k *ClipKernel) Repair(r Region) (Region, error) {
	if err := Validate(r); err == nil {
		return Clone(r), nil
	}
	out, err := construct(polyclip.INTERSECTION, r, FromBound(World))
	if err != nil {
		return r, err
	}
	if err := Validate(out); err != nil {
		return r, fmt.Errorf("repair: %w", err)
	}
	return out, nil
}

// run：预算简化 → 修复 → 布尔运算 → 结果校验；任一步失败返回未修改的 a
func (k *ClipKernel) run(op polyclip.Op, a, b Region) (Region, error) {
	sa, sb := k.budget(a, b)
	fa, err := k.Repair(sa)
	if err != nil {
		return a, err
	}
	fb, err := k.Repair(sb)
	if err != nil {
		return a, err
	}
	out, err := construct(op, fa, fb)
	if err != nil {
		return a, err
	}
	if IsEmpty(out) && !mayVanish(op, fa, fb) {
		return a, fmt.Errorf("%w: %s of overlapping operands came back empty", ErrInvalidGeometry, opName(op))
	}
	if err := Validate(out); err != nil {
		return a, err
	}
	return out, nil
}

func opName(op polyclip.Op) string {
	switch op {
	case polyclip.UNION:
		return "union"
	case polyclip.INTERSECTION:
		return "intersection"
	case polyclip.DIFFERENCE:
		return "difference"
	}
	return "xor"
}

// 文档注释：空结果复核
// 背景：Martinez 在退化输入上可能静默返回空集；空集又是折叠的合法终态，必须区分“确实为空”与“算错了”。
// 约束：只在能确定结果非空时返回 false（并集非空；交集有一方顶点严格落在另一方内部；差集有 a 的顶点严格落在 b 外部），其余情况信任运算结果。
func mayVanish(op polyclip.Op, a, b Region) bool {
	switch op {
	case polyclip.UNION:
		return IsEmpty(a) && IsEmpty(b)
	case polyclip.INTERSECTION:
		return !anyVertex(b, func(p orb.Point) bool { return strictlyInside(a, p) }) &&
			!anyVertex(a, func(p orb.Point) bool { return strictlyInside(b, p) })
	case polyclip.DIFFERENCE:
		return !anyVertex(a, func(p orb.Point) bool { return strictlyOutside(b, p) })
	}
	return true
}

// 每个区域至多抽查的顶点数
const guardSamples = 64

// 复核时与边界的最小距离（度）
const guardEps = 1e-9

func anyVertex(r Region, fn func(orb.Point) bool) bool {
	n := NumVertices(r)
	if n == 0 {
		return false
	}
	stride := n/guardSamples + 1
	i := 0
	for _, p := range r {
		for _, ring := range p {
			for _, pt := range ring {
				if i%stride == 0 && fn(pt) {
					return true
				}
				i++
			}
		}
	}
	return false
}

func strictlyInside(r Region, p orb.Point) bool {
	return planar.MultiPolygonContains(r, p) && boundaryDistance(r, p) > guardEps
}

func strictlyOutside(r Region, p orb.Point) bool {
	return !planar.MultiPolygonContains(r, p) && boundaryDistance(r, p) > guardEps
}

func boundaryDistance(r Region, p orb.Point) float64 {
	best := math.Inf(1)
	for _, poly := range r {
		for _, ring := range poly {
			for i := 0; i+1 < len(ring); i++ {
				if d := segmentDistance(p, ring[i], ring[i+1]); d < best {
					best = d
				}
			}
		}
	}
	return best
}

func segmentDistance(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	t := 0.0
	if l := dx*dx + dy*dy; l > 0 {
		t = math.Max(0, math.Min(1, ((p[0]-a[0])*dx+(p[1]-a[1])*dy)/l))
	}
	ex, ey := p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy)
	return math.Hypot(ex, ey)
}

// 文档注释：复杂度预算
// 背景：大陆级缓冲或大面积边界会让布尔运算耗时陡增；超预算时以递增容差做 Douglas-Peucker 简化，降精度换取不卡顿。
// 约束：简化作用于副本；容差上限 1°，仍超预算则按最后一次结果继续。
func (k *ClipKernel) budget(a, b Region) (Region, Region) {
	if NumVertices(a)+NumVertices(b) <= k.opts.MaxVertices {
		return a, b
	}
	sa, sb := a, b
	for tol := 1e-5; tol <= 1; tol *= 4 {
		sa = simplifyRegion(a, tol)
		sb = simplifyRegion(b, tol)
		if NumVertices(sa)+NumVertices(sb) <= k.opts.MaxVertices {
			break
		}
	}
	return sa, sb
}

func simplifyRegion(r Region, tol float64) Region {
	out := simplify.DouglasPeucker(tol).MultiPolygon(Clone(r))
	res := Region{}
	for _, p := range out {
		if len(p) == 0 || len(p[0]) < 4 {
			continue
		}
		var keep orb.Polygon
		for _, ring := range p {
			if len(ring) >= 4 {
				keep = append(keep, ring)
			}
		}
		res = append(res, keep)
	}
	return res
}

// 世界边界外推量（度），约 0.1 米
const edgePad = 1e-6

// 文档注释：调用 polyclip，并把 panic 转为 ErrInvalidGeometry
// 背景：Martinez 实现在两操作数共边时会静默丢失结果，而世界包围盒、跨日界线切分块、经极点闭合的圆盘都以 ±180/±90 为边。
// 约束：b 中落在世界边界上的顶点先外推 edgePad，使两操作数不再共边；结果坐标截回世界范围，截回后退化的细条由 fromClip 丢弃。
func construct(op polyclip.Op, a, b Region) (out Region, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%w: clip panic: %v", ErrInvalidGeometry, rec)
		}
	}()
	res := toClip(a).Construct(op, toClip(padEdges(b)))
	for _, c := range res {
		for i := range c {
			c[i].X = math.Max(World.Min[0], math.Min(World.Max[0], c[i].X))
			c[i].Y = math.Max(World.Min[1], math.Min(World.Max[1], c[i].Y))
		}
	}
	return fromClip(res), nil
}

// padEdges 返回副本：贴在（或越出）世界边界上的顶点沿外法向推出 edgePad
func padEdges(r Region) Region {
	out := Clone(r)
	for _, p := range out {
		for _, ring := range p {
			for i := range ring {
				ring[i] = padPoint(ring[i])
			}
		}
	}
	return out
}

func padPoint(p orb.Point) orb.Point {
	const tol = 1e-9
	switch {
	case p[0] >= World.Max[0]-tol:
		p[0] = math.Max(p[0], World.Max[0]) + edgePad
	case p[0] <= World.Min[0]+tol:
		p[0] = math.Min(p[0], World.Min[0]) - edgePad
	}
	switch {
	case p[1] >= World.Max[1]-tol:
		p[1] = math.Max(p[1], World.Max[1]) + edgePad
	case p[1] <= World.Min[1]+tol:
		p[1] = math.Min(p[1], World.Min[1]) - edgePad
	}
	return p
}

func toClip(r Region) polyclip.Polygon {
	var out polyclip.Polygon
	for _, p := range r {
		for _, ring := range p {
			c := make(polyclip.Contour, 0, len(ring))
			for i, pt := range ring {
				if i == len(ring)-1 && i > 0 && pt == ring[0] {
					break
				}
				c = append(c, polyclip.Point{X: pt[0], Y: pt[1]})
			}
			if len(c) >= 3 {
				out = append(out, c)
			}
		}
	}
	return out
}

type contour struct {
	ring   orb.Ring
	area   float64
	depth  int
	parent int
}

// 文档注释：polyclip 输出 → 多面
// 背景：Martinez 输出的轮廓不区分外环与洞，这里按嵌套深度重建：偶数深度为外环，奇数深度为其最小包含外环的洞。
// 约束：去除连续重复点与面积极小的碎片环；结果统一为外环逆时针、洞顺时针。
func fromClip(p polyclip.Polygon) Region {
	var cs []contour
	for _, c := range p {
		ring := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			q := orb.Point{pt.X, pt.Y}
			if len(ring) > 0 && ring[len(ring)-1] == q {
				continue
			}
			ring = append(ring, q)
		}
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			continue
		}
		ring = append(ring, ring[0])
		a := math.Abs(ringSignedArea(ring))
		if a < minRingArea {
			continue
		}
		cs = append(cs, contour{ring: ring, area: a, parent: -1})
	}
	// 按面积降序，包含者必然排在前面；最后一个命中的包含者面积最小，即直接父环
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].area > cs[j].area })
	for i := range cs {
		for j := 0; j < i; j++ {
			if ringInside(cs[i].ring, cs[j].ring) {
				cs[i].depth++
				cs[i].parent = j
			}
		}
	}
	out := Region{}
	index := make(map[int]int)
	for i, c := range cs {
		if c.depth%2 == 0 {
			index[i] = len(out)
			out = append(out, orb.Polygon{c.ring})
		}
	}
	for _, c := range cs {
		if c.depth%2 == 1 && c.parent >= 0 {
			if at, ok := index[c.parent]; ok {
				out[at] = append(out[at], c.ring)
			}
		}
	}
	return orientRings(out)
}

// ringInside：inner 的多数顶点落在 outer 内即视为被包含（容忍边界接触）
func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Intersects(inner.Bound()) {
		return false
	}
	n := len(inner) - 1
	in := 0
	for i := 0; i < n; i++ {
		if planar.RingContains(outer, inner[i]) {
			in++
		}
	}
	return in*2 > n
}
