// 包 constraint：五类问题的约束求值器；每个求值器只负责提取参数，集合运算统一在 apply 中完成
package constraint

import (
	"errors"
	"fmt"

	"hideseek/internal/geometry"
	"hideseek/internal/lookup"
	"hideseek/internal/question"
	"hideseek/internal/voronoi"

	"github.com/paulmach/orb"
)

// Env：求值所需的内核与已解析查询
type Env struct {
	Kernel  geometry.Kernel
	Lookups lookup.Lookups
}

// 文档注释：单步求值结果
// 背景：求值器从不抛出；失败以 Err 表达，Region 保持为输入候选区域。
// 约束：Err 满足 errors.Is(ErrDegenerateInput) 时表示“按约定无约束”，其余错误为软失败（应告警并跳过）。
type Outcome struct {
	Region  geometry.Region
	Changed bool
	Err     error
}

// evaluator 把问题化为统一的 plan
type evaluator func(env Env, q question.Question) (plan, error)

// 文档注释：统一求值计划
// 背景：五类问题都归约为“缓冲区掩膜（保留内侧或外侧）”与“Voronoi 选边”的组合。
// 约束：sites 非空时先取 selected 对应单元，再应用掩膜；selected 必须是 sites 的合法下标。
type plan struct {
	mask       geometry.Region
	hasMask    bool
	keepInside bool
	sites      []orb.Point
	selected   int
}

func maskPlan(mask geometry.Region, inside bool) plan {
	return plan{mask: mask, hasMask: true, keepInside: inside, selected: -1}
}

func sitePlan(sites []orb.Point, selected int) plan {
	return plan{sites: sites, selected: selected}
}

var registry = map[question.Kind]evaluator{
	question.KindRadius:      evalRadius,
	question.KindThermometer: evalThermometer,
	question.KindTentacles:   evalTentacles,
	question.KindMatching:    evalMatching,
	question.KindMeasuring:   evalMeasuring,
}

// Supported 报告该类型是否有求值器
func Supported(k question.Kind) bool {
	_, ok := registry[k]
	return ok
}

// 文档注释：求值入口
// 背景：待回答与未知类型问题直接返回原区域；畸形问题返回软失败；求值过程中的 panic 被恢复为 ErrInvalidGeometry。
// 约束：不修改 candidate；Changed 仅在结果与输入几何不同时为真。
func Evaluate(env Env, q question.Question, candidate geometry.Region) (out Outcome) {
	out = Outcome{Region: candidate}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Region: candidate, Err: fmt.Errorf("%w: evaluator panic: %v", geometry.ErrInvalidGeometry, r)}
		}
	}()
	if m, ok := q.Params.(question.Malformed); ok {
		out.Err = fmt.Errorf("malformed %s question: %w", m.Type, m.Err)
		return out
	}
	if !q.Answered() {
		return out
	}
	ev, ok := registry[q.Kind()]
	if !ok {
		return out
	}
	if env.Kernel == nil {
		env.Kernel = geometry.New(geometry.DefaultOptions())
	}
	p, err := ev(env, q)
	if err != nil {
		out.Err = err
		return out
	}
	region, err := apply(env.Kernel, p, candidate)
	if err != nil {
		out.Err = err
		return out
	}
	out.Region = region
	out.Changed = !region.Equal(candidate)
	return out
}

func apply(k geometry.Kernel, p plan, candidate geometry.Region) (geometry.Region, error) {
	if geometry.IsEmpty(candidate) {
		return candidate, nil
	}
	r := candidate
	if len(p.sites) > 0 {
		if p.selected < 0 || p.selected >= len(p.sites) {
			return candidate, fmt.Errorf("%w: selected site %d of %d", geometry.ErrDegenerateInput, p.selected, len(p.sites))
		}
		cells, err := voronoi.Partition(p.sites, candidate.Bound())
		if err != nil {
			return candidate, err
		}
		r, err = k.Intersection(r, cells[p.selected])
		if err != nil {
			return candidate, err
		}
	}
	if p.hasMask {
		mask := p.mask
		if !p.keepInside {
			var err error
			mask, err = k.WorldMask(p.mask)
			if err != nil {
				return candidate, err
			}
		}
		var err error
		r, err = k.Intersection(r, mask)
		if err != nil {
			return candidate, err
		}
	}
	return r, nil
}

// IsNoop：该错误表示按约定不施加约束（退化输入）
func IsNoop(err error) bool {
	return errors.Is(err, geometry.ErrDegenerateInput)
}
