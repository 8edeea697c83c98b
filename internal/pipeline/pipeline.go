// 包 pipeline：按创建顺序把已回答问题依次折叠到基础区域上，单步失败不影响整体
package pipeline

import (
	"log/slog"
	"sort"

	"hideseek/internal/constraint"
	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"
	"hideseek/internal/question"
)

// StepOutcome：单步折叠结果
type StepOutcome string

const (
	Applied   StepOutcome = "applied"
	Unchanged StepOutcome = "unchanged"
	Skipped   StepOutcome = "skipped"
	Pending   StepOutcome = "pending"
	Ignored   StepOutcome = "ignored"
)

// Step：折叠报告中的一项
type Step struct {
	QuestionID string        `json:"questionId"`
	Kind       question.Kind `json:"kind"`
	Outcome    StepOutcome   `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
}

// Result：Empty 为真表示没有任何位置满足全部约束，这是正常结果而非错误
type Result struct {
	Region geometry.Region
	Empty  bool
	Steps  []Step
}

// Pipeline：持有内核与日志器，本身无状态，可并发用于不同对局
type Pipeline struct {
	kernel geometry.Kernel
	log    *slog.Logger
}

func New(k geometry.Kernel, log *slog.Logger) *Pipeline {
	if k == nil {
		k = geometry.New(geometry.DefaultOptions())
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{kernel: k, log: log}
}

// Fold：默认内核、无日志的便捷入口
func Fold(base geometry.Region, qs []question.Question, l lookup.Lookups) geometry.Region {
	return New(nil, nil).Apply(base, qs, l).Region
}

type repairer interface {
	Repair(geometry.Region) (geometry.Region, error)
}

// 文档注释：折叠
// 背景：问题顺序即游戏因果顺序；交/差在 Voronoi 选边与已有空洞相互作用后不可交换，因此严格按 CreatedAt 升序。
// 约束：只折叠已回答问题，CreatedAt 相同保持输入顺序；求值软失败或结果拓扑非法时记录告警并沿用上一步区域；未知类型为空操作。
func (p *Pipeline) Apply(base geometry.Region, qs []question.Question, l lookup.Lookups) Result {
	candidate := base
	if err := geometry.Validate(base); err != nil && !geometry.IsEmpty(base) {
		p.log.Warn("pipeline_base_invalid", "err", err)
		if r, ok := p.kernel.(repairer); ok {
			if fixed, rerr := r.Repair(base); rerr == nil {
				candidate = fixed
			}
		}
	}

	ordered := make([]question.Question, len(qs))
	copy(ordered, qs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })

	env := constraint.Env{Kernel: p.kernel, Lookups: l}
	steps := make([]Step, 0, len(ordered))
	for _, q := range ordered {
		step := Step{QuestionID: q.ID, Kind: q.Kind()}
		switch {
		case !q.Answered():
			step.Outcome = Pending
		case isMalformed(q):
			step.Outcome = Skipped
			step.Reason = "malformed question"
			if err := q.Params.(question.Malformed).Err; err != nil {
				step.Reason = err.Error()
			}
			p.warn(step)
		case !constraint.Supported(q.Kind()):
			step.Outcome = Ignored
			step.Reason = "unknown question type"
		default:
			candidate, step = p.fold(env, q, candidate, step)
		}
		steps = append(steps, step)
	}

	res := Result{Region: candidate, Empty: geometry.IsEmpty(candidate), Steps: steps}
	p.log.Debug("pipeline_fold_done", "questions", len(qs), "empty", res.Empty, "vertices", geometry.NumVertices(candidate))
	return res
}

func (p *Pipeline) fold(env constraint.Env, q question.Question, candidate geometry.Region, step Step) (geometry.Region, Step) {
	out := constraint.Evaluate(env, q, candidate)
	if out.Err != nil {
		step.Reason = out.Err.Error()
		if constraint.IsNoop(out.Err) {
			step.Outcome = Unchanged
			p.log.Debug("pipeline_step_noop", "question_id", q.ID, "kind", q.Kind(), "reason", step.Reason)
			return candidate, step
		}
		step.Outcome = Skipped
		p.warn(step)
		return candidate, step
	}
	if !geometry.IsEmpty(out.Region) {
		if err := geometry.Validate(out.Region); err != nil {
			step.Outcome = Skipped
			step.Reason = err.Error()
			p.warn(step)
			return candidate, step
		}
	}
	if out.Changed {
		step.Outcome = Applied
	} else {
		step.Outcome = Unchanged
	}
	return out.Region, step
}

func (p *Pipeline) warn(s Step) {
	p.log.Warn("pipeline_step_skipped", "question_id", s.QuestionID, "kind", s.Kind, "reason", s.Reason)
}

func isMalformed(q question.Question) bool {
	_, ok := q.Params.(question.Malformed)
	return ok
}
