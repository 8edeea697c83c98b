package question

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// 各类型 data 字段的 JSON Schema；极性字段可缺省（待回答问题），是否必填由解码时按状态判断
var schemaSources = map[Kind]string{
	KindRadius: `{
		"type": "object",
		"required": ["lat", "lng", "radius"],
		"properties": {
			"lat": {"type": "number", "minimum": -90, "maximum": 90},
			"lng": {"type": "number", "minimum": -180, "maximum": 180},
			"radius": {"type": "number", "minimum": 0},
			"unit": {"type": "string"},
			"within": {"type": "boolean"}
		}
	}`,
	KindThermometer: `{
		"type": "object",
		"required": ["latA", "lngA", "latB", "lngB"],
		"properties": {
			"latA": {"type": "number", "minimum": -90, "maximum": 90},
			"lngA": {"type": "number", "minimum": -180, "maximum": 180},
			"latB": {"type": "number", "minimum": -90, "maximum": 90},
			"lngB": {"type": "number", "minimum": -180, "maximum": 180},
			"warmer": {"type": "boolean"}
		}
	}`,
	KindTentacles: `{
		"type": "object",
		"required": ["lat", "lng", "radius", "locationType"],
		"properties": {
			"lat": {"type": "number", "minimum": -90, "maximum": 90},
			"lng": {"type": "number", "minimum": -180, "maximum": 180},
			"radius": {"type": "number", "minimum": 0},
			"unit": {"type": "string"},
			"locationType": {"type": "string", "minLength": 1},
			"location": {"type": ["boolean", "object", "null"]}
		}
	}`,
	KindMatching: `{
		"type": "object",
		"required": ["lat", "lng", "type"],
		"properties": {
			"lat": {"type": "number", "minimum": -90, "maximum": 90},
			"lng": {"type": "number", "minimum": -180, "maximum": 180},
			"type": {"type": "string", "minLength": 1},
			"same": {"type": "boolean"},
			"zone": {"type": "object"}
		}
	}`,
	KindMeasuring: `{
		"type": "object",
		"required": ["lat", "lng", "type"],
		"properties": {
			"lat": {"type": "number", "minimum": -90, "maximum": 90},
			"lng": {"type": "number", "minimum": -180, "maximum": 180},
			"type": {"type": "string", "minLength": 1},
			"hiderCloser": {"type": "boolean"}
		}
	}`,
}

var (
	schemaOnce sync.Once
	schemas    map[Kind]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() (map[Kind]*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemas = make(map[Kind]*gojsonschema.Schema, len(schemaSources))
		for k, src := range schemaSources {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				schemaErr = fmt.Errorf("compile %s schema: %w", k, err)
				return
			}
			schemas[k] = s
		}
	})
	return schemas, schemaErr
}

// validateData：按类型校验 data；未知类型不校验
func validateData(k Kind, data []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := all[k]
	if !ok {
		return nil
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate %s data: %w", k, err)
	}
	if !res.Valid() {
		var msgs []string
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid %s data: %s", k, strings.Join(msgs, "; "))
	}
	return nil
}
