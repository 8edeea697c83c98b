package geometry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：GeoJSON → 区域
// 背景：底图区域来自地点搜索或用户绘制，统一以 GeoJSON 提交；支持 Geometry/Feature/FeatureCollection 与 Polygon/MultiPolygon/Bound。
// 约束：非面几何被忽略；多个要素按原样拼接为多面，由调用方决定是否再做 Union。
func DecodeRegion(data []byte) (Region, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		out := Region{}
		for _, f := range fc.Features {
			out = append(out, toRegion(f.Geometry)...)
		}
		return out, nil
	case "feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		return toRegion(f.Geometry), nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		return toRegion(g.Geometry()), nil
	}
}

func toRegion(g orb.Geometry) Region {
	switch v := g.(type) {
	case orb.Polygon:
		return Region{v}
	case orb.MultiPolygon:
		return v
	case orb.Bound:
		return FromBound(v)
	case orb.Collection:
		out := Region{}
		for _, it := range v {
			out = append(out, toRegion(it)...)
		}
		return out
	}
	return Region{}
}

// EncodeRegion：区域 → GeoJSON 几何（渲染器无关的交换格式）
func EncodeRegion(r Region) *geojson.Geometry {
	if IsEmpty(r) {
		return geojson.NewGeometry(orb.MultiPolygon{})
	}
	if len(r) == 1 {
		return geojson.NewGeometry(r[0])
	}
	return geojson.NewGeometry(r)
}
