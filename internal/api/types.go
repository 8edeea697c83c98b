package api

import (
	"encoding/json"

	"hideseek/internal/pipeline"
	"hideseek/internal/question"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：对外请求/响应结构
// 背景：统一对外序列化模型；区域一律以 GeoJSON 几何交换，问题以存储记录格式交换。
// 约束：字段稳定；新增字段需评估兼容性与前端依赖。
type regionRequest struct {
	// Base 缺省为全球
	Base      json.RawMessage   `json:"base,omitempty"`
	Questions []question.Record `json:"questions"`
}

type regionResponse struct {
	RunID  string            `json:"runId"`
	Region *geojson.Geometry `json:"region"`
	Empty  bool              `json:"empty"`
	Steps  []pipeline.Step   `json:"steps"`
}

// 隐藏者坐标，沿用问题记录中的 lat/lng 命名
type coord struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (c coord) point() (orb.Point, bool) {
	if c.Lat == nil || c.Lng == nil {
		return orb.Point{}, false
	}
	return orb.Point{*c.Lng, *c.Lat}, true
}

type answerRequest struct {
	Question question.Record `json:"question"`
	Hider    coord           `json:"hider"`
}

type answerResponse struct {
	Answer   question.Answer `json:"answer"`
	Question question.Record `json:"question"`
}

type zoneResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Region   *geojson.Geometry `json:"region"`
}

type errorResponse struct {
	Error string `json:"error"`
}
