package zones

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// 文档注释：KD-Tree 最近邻与半径查询
// 背景：触手题需要“半径内全部同类地点”，测量题需要“最近要素”；地点量级可达数万，线性扫描在批量折叠时偏慢。
// 约束：在单位球三维坐标上构建（x/y/z 轮换分割），弦长与球面距离单调对应，剪枝在任意纬度与跨日界线时都精确。
type kdNode struct {
	idx int
	v   [3]float64
	ax  int
	l   *kdNode
	r   *kdNode
}

type kdTree struct {
	root   *kdNode
	places []Place
}

func unitVec(p orb.Point) [3]float64 {
	lon := p[0] * math.Pi / 180
	lat := p[1] * math.Pi / 180
	return [3]float64{math.Cos(lat) * math.Cos(lon), math.Cos(lat) * math.Sin(lon), math.Sin(lat)}
}

// chordFor：球面距离（米）对应的单位球弦长
func chordFor(meters float64) float64 {
	ang := meters / orb.EarthRadius
	if ang >= math.Pi {
		return 2
	}
	return 2 * math.Sin(ang/2)
}

func chord(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func buildKD(places []Place) *kdTree {
	nodes := make([]*kdNode, len(places))
	for i, p := range places {
		nodes[i] = &kdNode{idx: i, v: unitVec(p.Point)}
	}
	return &kdTree{root: build(nodes, 0), places: places}
}

func build(nodes []*kdNode, depth int) *kdNode {
	if len(nodes) == 0 {
		return nil
	}
	ax := depth % 3
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].v[ax] < nodes[j].v[ax] })
	mid := len(nodes) / 2
	n := nodes[mid]
	n.ax = ax
	n.l = build(nodes[:mid], depth+1)
	n.r = build(nodes[mid+1:], depth+1)
	return n
}

// nearest 返回最近地点下标与弦长；空树返回 -1
func (t *kdTree) nearest(p orb.Point) (int, float64) {
	q := unitVec(p)
	best, bestD := -1, math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		d := chord(q, n.v)
		if d < bestD || (d == bestD && n.idx < best) {
			best, bestD = n.idx, d
		}
		diff := q[n.ax] - n.v[n.ax]
		first, second := n.l, n.r
		if diff > 0 {
			first, second = n.r, n.l
		}
		dfs(first)
		// 仅当分割平面到查询点的距离不超过当前最优距离时才遍历另一侧
		if math.Abs(diff) <= bestD {
			dfs(second)
		}
	}
	dfs(t.root)
	return best, bestD
}

// within 返回球面距离不超过 meters 的地点下标（升序）
func (t *kdTree) within(p orb.Point, meters float64) []int {
	q := unitVec(p)
	limit := chordFor(meters)
	var out []int
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		if chord(q, n.v) <= limit {
			out = append(out, n.idx)
		}
		diff := q[n.ax] - n.v[n.ax]
		if -diff <= limit {
			dfs(n.r)
		}
		if diff <= limit {
			dfs(n.l)
		}
	}
	dfs(t.root)
	sort.Ints(out)
	return out
}
