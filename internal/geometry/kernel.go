package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 文档注释：几何内核接口
// 背景：求值器只依赖这组原语（缓冲、集合运算、世界掩膜、点包含），可替换为任意原生几何库而不触碰求值器。
// 约束：全部为纯函数且确定；空结果以 Empty 返回而非错误；失败时返回未修改的第一个输入并附带 ErrInvalidGeometry。
type Kernel interface {
	Buffer(center orb.Point, distance float64, unit Unit) (Region, error)
	Union(regions ...Region) (Region, error)
	Intersection(a, b Region) (Region, error)
	Difference(a, b Region) (Region, error)
	WorldMask(hole Region) (Region, error)
	Contains(r Region, p orb.Point) bool
}

// Options：内核参数
type Options struct {
	// BufferSteps：圆盘外环的顶点数
	BufferSteps int
	// MaxVertices：布尔运算前两操作数顶点总数上限，超出则先简化
	MaxVertices int
}

const (
	DefaultBufferSteps = 64
	DefaultMaxVertices = 20000
)

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{BufferSteps: DefaultBufferSteps, MaxVertices: DefaultMaxVertices}
}

// ClipKernel：基于 orb（球面距离/包含）与 polyclip（Martinez 布尔运算）的内核实现
type ClipKernel struct {
	opts Options
}

// New 构造内核；非法参数回退默认值
func New(opts Options) *ClipKernel {
	if opts.BufferSteps < 8 {
		opts.BufferSteps = DefaultBufferSteps
	}
	if opts.MaxVertices <= 0 {
		opts.MaxVertices = DefaultMaxVertices
	}
	return &ClipKernel{opts: opts}
}

var _ Kernel = (*ClipKernel)(nil)

// Contains：平面点包含，边界视为在内
func (k *ClipKernel) Contains(r Region, p orb.Point) bool {
	if IsEmpty(r) {
		return false
	}
	return planar.MultiPolygonContains(r, p)
}

// WorldMask：世界范围减去 hole，表达“除此之外的任何地方”
func (k *ClipKernel) WorldMask(hole Region) (Region, error) {
	world := FromBound(World)
	if IsEmpty(hole) {
		return world, nil
	}
	out, err := k.Difference(world, hole)
	if err != nil {
		return world, err
	}
	return out, nil
}
