package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hideseek/internal/geometry"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Record：问题存储的交换格式 {id, type, data, status, createdAt}
type Record struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
	Data      json.RawMessage `json:"data"`
}

var errMissingAnswer = errors.New("answered question has no answer")

// DecodeRecords 解析记录数组；单条记录的问题不会导致整体失败，而是以 Malformed 返回
func DecodeRecords(data []byte) ([]Question, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode question records: %w", err)
	}
	out := make([]Question, 0, len(recs))
	for _, r := range recs {
		out = append(out, Decode(r))
	}
	return out, nil
}

// 文档注释：单条记录解码
// 背景：存储中的数据可能是部分配置或默认值（如 lat=null），必须在进入折叠前被识别出来。
// 约束：先按类型做 JSON Schema 校验，再做语义检查；任何失败都返回 Params=Malformed 而不是错误；缺少 id 时生成 UUID。
func Decode(r Record) Question {
	q := Question{ID: r.ID, Status: Status(strings.ToLower(r.Status))}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status != Answered {
		q.Status = Pending
	}
	kind := Kind(strings.ToLower(r.Type))
	ts, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		q.Params = Malformed{Type: kind, Err: err}
		return q
	}
	q.CreatedAt = ts
	if _, known := schemaSources[kind]; !known {
		q.Params = Unknown{Type: r.Type}
		return q
	}
	data := r.Data
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("null")
	}
	if err := validateData(kind, data); err != nil {
		q.Params = Malformed{Type: kind, Err: err}
		return q
	}
	p, err := decodeParams(kind, data, q.Status == Answered)
	if err != nil {
		q.Params = Malformed{Type: kind, Err: err}
		return q
	}
	q.Params = p
	return q
}

type radiusData struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"`
	Unit   string  `json:"unit"`
	Within *bool   `json:"within,omitempty"`
}

type thermometerData struct {
	LatA   float64 `json:"latA"`
	LngA   float64 `json:"lngA"`
	LatB   float64 `json:"latB"`
	LngB   float64 `json:"lngB"`
	Warmer *bool   `json:"warmer,omitempty"`
}

type tentaclesData struct {
	Lat          float64         `json:"lat"`
	Lng          float64         `json:"lng"`
	Radius       float64         `json:"radius"`
	Unit         string          `json:"unit"`
	LocationType string          `json:"locationType"`
	Location     json.RawMessage `json:"location,omitempty"`
}

type matchingData struct {
	Lat  float64         `json:"lat"`
	Lng  float64         `json:"lng"`
	Type string          `json:"type"`
	Same *bool           `json:"same,omitempty"`
	Zone json.RawMessage `json:"zone,omitempty"`
}

type measuringData struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Type        string  `json:"type"`
	HiderCloser *bool   `json:"hiderCloser,omitempty"`
}

func decodeParams(kind Kind, data []byte, answered bool) (Params, error) {
	switch kind {
	case KindRadius:
		var d radiusData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		unit, err := geometry.ParseUnit(d.Unit)
		if err != nil {
			return nil, err
		}
		within, err := polarity(d.Within, answered)
		if err != nil {
			return nil, err
		}
		return Radius{Center: orb.Point{d.Lng, d.Lat}, Radius: d.Radius, Unit: unit, Within: within}, nil
	case KindThermometer:
		var d thermometerData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		warmer, err := polarity(d.Warmer, answered)
		if err != nil {
			return nil, err
		}
		return Thermometer{A: orb.Point{d.LngA, d.LatA}, B: orb.Point{d.LngB, d.LatB}, Warmer: warmer}, nil
	case KindTentacles:
		var d tentaclesData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		unit, err := geometry.ParseUnit(d.Unit)
		if err != nil {
			return nil, err
		}
		loc, present, err := decodeLocation(d.Location)
		if err != nil {
			return nil, err
		}
		if answered && !present {
			return nil, errMissingAnswer
		}
		return Tentacles{Center: orb.Point{d.Lng, d.Lat}, Radius: d.Radius, Unit: unit, Category: d.LocationType, Location: loc}, nil
	case KindMatching:
		var d matchingData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		same, err := polarity(d.Same, answered)
		if err != nil {
			return nil, err
		}
		m := Matching{Point: orb.Point{d.Lng, d.Lat}, Category: d.Type, Same: same}
		if len(d.Zone) > 0 && string(d.Zone) != "null" {
			zone, err := geometry.DecodeRegion(d.Zone)
			if err != nil {
				return nil, err
			}
			m.Zone = zone
		}
		return m, nil
	case KindMeasuring:
		var d measuringData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		closer, err := polarity(d.HiderCloser, answered)
		if err != nil {
			return nil, err
		}
		return Measuring{Point: orb.Point{d.Lng, d.Lat}, Category: d.Type, HiderCloser: closer}, nil
	}
	return Unknown{Type: string(kind)}, nil
}

func polarity(v *bool, answered bool) (bool, error) {
	if v == nil {
		if answered {
			return false, errMissingAnswer
		}
		return false, nil
	}
	return *v, nil
}

// decodeLocation：false/null 表示不在范围内；对象可为 {name,lat,lng} 或 GeoJSON Point 要素
func decodeLocation(raw json.RawMessage) (*Place, bool, error) {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "":
		return nil, false, nil
	case "null", "false":
		return nil, true, nil
	case "true":
		return nil, false, errors.New("tentacles location must be false or a place")
	}
	var head struct {
		Type string   `json:"type"`
		Name string   `json:"name"`
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, false, err
	}
	if strings.EqualFold(head.Type, "feature") {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, false, err
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, false, fmt.Errorf("tentacles location geometry %T is not a point", f.Geometry)
		}
		name, _ := f.Properties["name"].(string)
		return &Place{Name: name, Point: pt}, true, nil
	}
	if head.Lat == nil || head.Lng == nil {
		return nil, false, errors.New("tentacles location without coordinates")
	}
	p := orb.Point{*head.Lng, *head.Lat}
	if !geometry.ValidPoint(p) {
		return nil, false, fmt.Errorf("tentacles location out of range: %v", p)
	}
	return &Place{Name: head.Name, Point: p}, true, nil
}

// parseTimestamp：RFC3339 字符串或 Unix 毫秒；缺省为零值
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("createdAt: %w", err)
		}
		return t, nil
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("createdAt: %w", err)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// EncodeRecord：问题 → 记录，供接口回显与 CLI 输出；未知/畸形问题不可编码
func EncodeRecord(q Question) (Record, error) {
	var data any
	switch p := q.Params.(type) {
	case Radius:
		data = radiusData{Lat: p.Center[1], Lng: p.Center[0], Radius: p.Radius, Unit: string(p.Unit), Within: answeredBool(q, p.Within)}
	case Thermometer:
		data = thermometerData{LatA: p.A[1], LngA: p.A[0], LatB: p.B[1], LngB: p.B[0], Warmer: answeredBool(q, p.Warmer)}
	case Tentacles:
		d := tentaclesData{Lat: p.Center[1], Lng: p.Center[0], Radius: p.Radius, Unit: string(p.Unit), LocationType: p.Category}
		if q.Answered() {
			d.Location = json.RawMessage("false")
			if p.Location != nil {
				b, err := json.Marshal(map[string]any{"name": p.Location.Name, "lat": p.Location.Point[1], "lng": p.Location.Point[0]})
				if err != nil {
					return Record{}, err
				}
				d.Location = b
			}
		}
		data = d
	case Matching:
		d := matchingData{Lat: p.Point[1], Lng: p.Point[0], Type: p.Category, Same: answeredBool(q, p.Same)}
		if !geometry.IsEmpty(p.Zone) {
			b, err := json.Marshal(geometry.EncodeRegion(p.Zone))
			if err != nil {
				return Record{}, err
			}
			d.Zone = b
		}
		data = d
	case Measuring:
		data = measuringData{Lat: p.Point[1], Lng: p.Point[0], Type: p.Category, HiderCloser: answeredBool(q, p.HiderCloser)}
	default:
		return Record{}, fmt.Errorf("question %s of kind %q cannot be encoded", q.ID, q.Kind())
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: q.ID, Type: string(q.Kind()), Status: string(q.Status), Data: b}
	if !q.CreatedAt.IsZero() {
		ts, _ := json.Marshal(q.CreatedAt.Format(time.RFC3339Nano))
		rec.CreatedAt = ts
	}
	return rec, nil
}

func answeredBool(q Question, v bool) *bool {
	if !q.Answered() {
		return nil
	}
	return &v
}
