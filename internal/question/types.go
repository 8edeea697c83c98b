// 包 question：问题的不可变值类型（五类 + 未知/畸形占位）与答案回写
package question

import (
	"fmt"
	"time"

	"hideseek/internal/geometry"

	"github.com/paulmach/orb"
)

// Kind：问题类型标签
type Kind string

const (
	KindRadius      Kind = "radius"
	KindThermometer Kind = "thermometer"
	KindTentacles   Kind = "tentacles"
	KindMatching    Kind = "matching"
	KindMeasuring   Kind = "measuring"
)

// Status：只有 answered 的问题参与折叠
type Status string

const (
	Pending  Status = "pending"
	Answered Status = "answered"
)

// Place：具名地点（触手问题的候选/所选地点、测量问题的要素）
type Place struct {
	Name  string    `json:"name"`
	Point orb.Point `json:"point"`
}

// 文档注释：问题（带标签的联合体）
// 背景：替代前端的响应式问题对象；每次回写答案都返回新值，不共享可变状态。
// 约束：CreatedAt 为折叠顺序键；Params 为下列具体类型之一。
type Question struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	Params    Params
}

// Params：各问题类型的参数与极性
type Params interface {
	Kind() Kind
}

// Kind 返回参数的类型标签；无参数时为空
func (q Question) Kind() Kind {
	if q.Params == nil {
		return ""
	}
	return q.Params.Kind()
}

func (q Question) Answered() bool { return q.Status == Answered }

// Radius：隐藏者是否在 center 的 radius 范围内
type Radius struct {
	Center orb.Point
	Radius float64
	Unit   geometry.Unit
	Within bool
}

// Thermometer：隐藏者是否离 B 比离 A 更近
type Thermometer struct {
	A, B   orb.Point
	Warmer bool
}

// Tentacles：半径内同类地点中隐藏者最近的一个；Location 为 nil 表示“不在范围内”
type Tentacles struct {
	Center   orb.Point
	Radius   float64
	Unit     geometry.Unit
	Category string
	Location *Place
}

// Matching：隐藏者与 Point 是否处于同一分区；Zone 非空时为用户绘制的自定义分区，优先于查询结果
type Matching struct {
	Point    orb.Point
	Category string
	Same     bool
	Zone     geometry.Region
}

// Measuring：相对 Point，隐藏者是否更靠近最近的该类要素
type Measuring struct {
	Point       orb.Point
	Category    string
	HiderCloser bool
}

// Unknown：无法识别的类型（如照片题），折叠时忽略
type Unknown struct {
	Type string
}

// Malformed：解码或校验失败的记录，折叠时跳过并告警
type Malformed struct {
	Type Kind
	Err  error
}

func (Radius) Kind() Kind      { return KindRadius }
func (Thermometer) Kind() Kind { return KindThermometer }
func (Tentacles) Kind() Kind   { return KindTentacles }
func (Matching) Kind() Kind    { return KindMatching }
func (Measuring) Kind() Kind   { return KindMeasuring }
func (u Unknown) Kind() Kind   { return Kind(u.Type) }
func (m Malformed) Kind() Kind { return m.Type }

// Answer：隐藏者给出的答案；Value 对应各类型的极性字段，触手题以 Location 表达
type Answer struct {
	Kind     Kind   `json:"kind"`
	Value    bool   `json:"value"`
	Location *Place `json:"location,omitempty"`
}

// 文档注释：回写答案
// 背景：隐藏者模式下自动作答，写入极性字段并标记为已回答；返回新值，原问题不变。
// 约束：答案类型必须与问题类型一致；未知/畸形问题不可作答。
func (q Question) WithAnswer(a Answer) (Question, error) {
	if a.Kind != q.Kind() {
		return q, fmt.Errorf("answer kind %q does not match question kind %q", a.Kind, q.Kind())
	}
	switch p := q.Params.(type) {
	case Radius:
		p.Within = a.Value
		q.Params = p
	case Thermometer:
		p.Warmer = a.Value
		q.Params = p
	case Tentacles:
		p.Location = nil
		if a.Location != nil {
			loc := *a.Location
			p.Location = &loc
		}
		q.Params = p
	case Matching:
		p.Same = a.Value
		q.Params = p
	case Measuring:
		p.HiderCloser = a.Value
		q.Params = p
	default:
		return q, fmt.Errorf("question %s of kind %q cannot be answered", q.ID, q.Kind())
	}
	q.Status = Answered
	return q, nil
}
