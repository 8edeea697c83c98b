package zones

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：从数据目录加载分区与地点快照
// 背景：数据目录中每个 *.geojson 为一个 FeatureCollection（或单个 Feature），可来自 OSM 导出或手工绘制。
// 约束：Polygon/MultiPolygon 要素为分区，Point 要素为地点；类别取 category 属性，缺省为文件名（不含扩展名）；
// 分区 id 取 id 属性，缺省为“文件名:序号”；无法解析的文件记录告警后跳过，不影响其它文件。
func LoadSnapshot(dir string) (*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read zones dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if !ent.IsDir() && strings.HasSuffix(strings.ToLower(ent.Name()), ".geojson") {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)

	snap := &Snapshot{BuiltAt: time.Now()}
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.L().Warn("zones_file_read_error", "file", name, "err", err)
			continue
		}
		fc, err := decodeFeatures(b)
		if err != nil {
			logger.L().Warn("zones_file_decode_error", "file", name, "err", err)
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		addFeatures(snap, stem, fc.Features)
	}
	logger.L().Info("zones_snapshot_loaded", "dir", dir, "files", len(names), "zones", len(snap.Zones), "places", len(snap.Places))
	return snap, nil
}

// decodeFeatures 接受 FeatureCollection 或单个 Feature
func decodeFeatures(b []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err == nil && fc.Type == "FeatureCollection" {
		return fc, nil
	}
	f, ferr := geojson.UnmarshalFeature(b)
	if ferr != nil {
		if err != nil {
			return nil, err
		}
		return nil, ferr
	}
	out := geojson.NewFeatureCollection()
	out.Append(f)
	return out, nil
}

func addFeatures(snap *Snapshot, stem string, features []*geojson.Feature) {
	for i, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		category := propString(f.Properties, "category", stem)
		name := propString(f.Properties, "name", "")
		switch g := f.Geometry.(type) {
		case orb.Point:
			if !geometry.ValidPoint(g) {
				continue
			}
			snap.Places = append(snap.Places, Place{Name: name, Category: category, Point: g})
		case orb.MultiPoint:
			for _, p := range g {
				if geometry.ValidPoint(p) {
					snap.Places = append(snap.Places, Place{Name: name, Category: category, Point: p})
				}
			}
		case orb.Polygon, orb.MultiPolygon:
			region := toRegion(g)
			if geometry.IsEmpty(region) {
				continue
			}
			id := featureID(f, stem, i)
			snap.Zones = append(snap.Zones, lookup.Zone{ID: id, Name: name, Category: category, Region: region})
		}
	}
}

func toRegion(g orb.Geometry) geometry.Region {
	switch v := g.(type) {
	case orb.Polygon:
		return geometry.Region{v}
	case orb.MultiPolygon:
		return v
	}
	return geometry.Empty()
}

func featureID(f *geojson.Feature, stem string, idx int) string {
	if s := propString(f.Properties, "id", ""); s != "" {
		return s
	}
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return stem + ":" + strconv.Itoa(idx)
}

// propString：字符串属性原样返回，数值属性格式化，其余取默认值
func propString(p geojson.Properties, key, def string) string {
	switch v := p[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return def
}
