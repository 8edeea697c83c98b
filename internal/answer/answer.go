// 包 answer：隐藏者模式下根据真实坐标计算各类问题的正确答案
package answer

import (
	"errors"
	"fmt"
	"log/slog"

	"hideseek/internal/constraint"
	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"
	"hideseek/internal/question"
	"hideseek/internal/voronoi"

	"github.com/paulmach/orb"
)

// ErrUnanswerable：未知或畸形问题无法作答
var ErrUnanswerable = errors.New("question cannot be answered")

// 文档注释：答案计算器
// 背景：与求值器共用圆盘、站点与最近站点判定，保证“计算答案 → 折叠”后隐藏者仍在结果区域内。
// 约束：只读取 Lookups，不做 I/O；查询缺失时返回 ErrLookupUnavailable。
type Computer struct {
	kernel geometry.Kernel
	log    *slog.Logger
}

func New(k geometry.Kernel, log *slog.Logger) *Computer {
	if k == nil {
		k = geometry.New(geometry.DefaultOptions())
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Computer{kernel: k, log: log}
}

// Compute 返回隐藏者在 hider 处应给出的答案
func (c *Computer) Compute(q question.Question, hider orb.Point, l lookup.Lookups) (question.Answer, error) {
	if !geometry.ValidPoint(hider) {
		return question.Answer{}, fmt.Errorf("%w: hider %v", geometry.ErrDegenerateInput, hider)
	}
	a := question.Answer{Kind: q.Kind()}
	switch p := q.Params.(type) {
	case question.Radius:
		disc, err := constraint.RadiusDisc(c.kernel, p.Center, p.Radius, p.Unit)
		if err != nil {
			return a, err
		}
		a.Value = c.kernel.Contains(disc, hider)
	case question.Thermometer:
		// 重合站点时 Nearest 取下标 0，答案为 false，求值器按无约束处理
		a.Value = voronoi.Nearest(constraint.ThermometerSites(p), hider) == 1
	case question.Tentacles:
		loc, err := c.tentacles(q.ID, p, hider, l)
		if err != nil {
			return a, err
		}
		a.Location = loc
		a.Value = loc != nil
	case question.Matching:
		same, err := c.matching(q.ID, p, hider, l)
		if err != nil {
			return a, err
		}
		a.Value = same
	case question.Measuring:
		feats, err := l.FeaturesFor(q.ID)
		if err != nil {
			return a, err
		}
		f, ok := constraint.NearestFeature(feats, p.Point)
		if ok {
			a.Value = voronoi.Nearest(constraint.MeasuringSites(p.Point, f), hider) == 1
		}
	default:
		return a, fmt.Errorf("%w: %s (kind %q)", ErrUnanswerable, q.ID, q.Kind())
	}
	return a, nil
}

func (c *Computer) tentacles(id string, p question.Tentacles, hider orb.Point, l lookup.Lookups) (*question.Place, error) {
	disc, err := constraint.RadiusDisc(c.kernel, p.Center, p.Radius, p.Unit)
	if err != nil {
		return nil, err
	}
	locs, err := l.LocationsFor(id)
	if err != nil {
		return nil, err
	}
	if !c.kernel.Contains(disc, hider) {
		return nil, nil
	}
	sites, _ := constraint.TentacleSites(locs, nil)
	if len(sites) == 0 {
		return nil, nil
	}
	chosen := sites[voronoi.Nearest(constraint.Points(sites), hider)]
	return &chosen, nil
}

func (c *Computer) matching(id string, p question.Matching, hider orb.Point, l lookup.Lookups) (bool, error) {
	if !geometry.IsEmpty(p.Zone) {
		return c.kernel.Contains(p.Zone, hider), nil
	}
	zone, err := l.ZoneFor(id)
	if err != nil {
		return false, err
	}
	hz, err := l.HiderZoneFor(id)
	if err != nil {
		return false, err
	}
	return hz.Found() && hz.ID == zone.ID, nil
}

// Answer：计算答案并写回问题（返回新值）
func (c *Computer) Answer(q question.Question, hider orb.Point, l lookup.Lookups) (question.Question, error) {
	a, err := c.Compute(q, hider, l)
	if err != nil {
		return q, err
	}
	return q.WithAnswer(a)
}

// 文档注释：批量自动作答
// 背景：隐藏者模式下对尚未回答的问题逐一作答；已回答问题与未知类型问题保持原样。
// 约束：单题失败不影响其它问题，失败的问题保持待回答状态，错误以 errors.Join 汇总返回。
func (c *Computer) AnswerAll(qs []question.Question, hider orb.Point, l lookup.Lookups) ([]question.Question, error) {
	out := make([]question.Question, len(qs))
	var errs []error
	for i, q := range qs {
		out[i] = q
		if _, unknown := q.Params.(question.Unknown); unknown || q.Answered() {
			continue
		}
		aq, err := c.Answer(q, hider, l)
		if err != nil {
			c.log.Warn("answer_failed", "question_id", q.ID, "kind", q.Kind(), "err", err)
			errs = append(errs, fmt.Errorf("question %s: %w", q.ID, err))
			continue
		}
		out[i] = aq
	}
	return out, errors.Join(errs...)
}
