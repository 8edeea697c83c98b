package constraint

import (
	"fmt"

	"hideseek/internal/geometry"
	"hideseek/internal/question"
)

func evalRadius(env Env, q question.Question) (plan, error) {
	p := q.Params.(question.Radius)
	disc, err := RadiusDisc(env.Kernel, p.Center, p.Radius, p.Unit)
	if err != nil {
		return plan{}, err
	}
	// 零半径圆盘测度为零，不施加约束
	if geometry.IsEmpty(disc) {
		return plan{}, fmt.Errorf("%w: zero radius", geometry.ErrDegenerateInput)
	}
	return maskPlan(disc, p.Within), nil
}

// 温度计：B 一侧为“更热”
func evalThermometer(_ Env, q question.Question) (plan, error) {
	p := q.Params.(question.Thermometer)
	sel := 0
	if p.Warmer {
		sel = 1
	}
	return sitePlan(ThermometerSites(p), sel), nil
}

// 文档注释：触手题
// 背景：给出具体地点时，隐藏者离该地点比离半径内其它同类地点都近，且在半径内；回答“否”时隐藏者在半径外。
// 约束：地点集合缺失为 ErrLookupUnavailable；回答“否”且已知集合为空时不施加约束（ErrDegenerateInput）。
func evalTentacles(env Env, q question.Question) (plan, error) {
	p := q.Params.(question.Tentacles)
	disc, err := RadiusDisc(env.Kernel, p.Center, p.Radius, p.Unit)
	if err != nil {
		return plan{}, err
	}
	locs, err := env.Lookups.LocationsFor(q.ID)
	if err != nil {
		return plan{}, err
	}
	if p.Location == nil {
		if len(locs) == 0 {
			return plan{}, fmt.Errorf("%w: no %s within radius, answer carries no information", geometry.ErrDegenerateInput, p.Category)
		}
		return maskPlan(disc, false), nil
	}
	sites, idx := TentacleSites(locs, p.Location)
	pl := maskPlan(disc, true)
	pl.sites = Points(sites)
	pl.selected = idx
	return pl, nil
}

func evalMatching(env Env, q question.Question) (plan, error) {
	p := q.Params.(question.Matching)
	zone := p.Zone
	if geometry.IsEmpty(zone) {
		z, err := env.Lookups.ZoneFor(q.ID)
		if err != nil {
			return plan{}, err
		}
		zone = z.Region
	}
	return maskPlan(zone, p.Same), nil
}

func evalMeasuring(env Env, q question.Question) (plan, error) {
	p := q.Params.(question.Measuring)
	feats, err := env.Lookups.FeaturesFor(q.ID)
	if err != nil {
		return plan{}, err
	}
	f, ok := NearestFeature(feats, p.Point)
	if !ok {
		return plan{}, fmt.Errorf("%w: no %s feature resolved", geometry.ErrDegenerateInput, p.Category)
	}
	sel := 0
	if p.HiderCloser {
		sel = 1
	}
	return sitePlan(MeasuringSites(p.Point, f), sel), nil
}
