package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hideseek/internal/question"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const districts = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"id":"west","category":"district"},"geometry":{"type":"Polygon","coordinates":[[[9.9,53.5],[10.0,53.5],[10.0,53.6],[9.9,53.6],[9.9,53.5]]]}},
 {"type":"Feature","properties":{"id":"east","category":"district"},"geometry":{"type":"Polygon","coordinates":[[[10.0,53.5],[10.1,53.5],[10.1,53.6],[10.0,53.6],[10.0,53.5]]]}}
]}`

const questionsYAML = `
- id: r1
  type: radius
  status: pending
  createdAt: "2024-05-01T10:00:00Z"
  data: {lat: 53.55, lng: 10.0, radius: 5, unit: km}
- id: m1
  type: matching
  status: pending
  createdAt: "2024-05-01T10:05:00Z"
  data: {lat: 53.55, lng: 9.95, type: district}
`

func TestParseHider(t *testing.T) {
	p, err := parseHider("53.55, 10.05")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{10.05, 53.55}, p)

	for _, bad := range []string{"53.55", "x,1", "95,10"} {
		_, err := parseHider(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadQuestionsYAML(t *testing.T) {
	f := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(f, []byte(questionsYAML), 0o644))
	qs, err := loadQuestions(f)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, question.KindRadius, qs[0].Kind())
	assert.Equal(t, question.Pending, qs[0].Status)
	assert.Equal(t, question.KindMatching, qs[1].Kind())
}

func TestRunHiderMode(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "zones")
	require.NoError(t, os.Mkdir(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "district.geojson"), []byte(districts), 0o644))
	qf := filepath.Join(dir, "q.yml")
	require.NoError(t, os.WriteFile(qf, []byte(questionsYAML), 0o644))
	answers := filepath.Join(dir, "answers.json")

	var out bytes.Buffer
	err := run(context.Background(), options{
		questions: qf,
		data:      data,
		hider:     "53.55,10.03",
		answers:   answers,
		timeout:   5 * time.Second,
	}, &out)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(out.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, false, fc.Features[0].Properties["empty"])

	var region orb.MultiPolygon
	switch g := fc.Features[0].Geometry.(type) {
	case orb.Polygon:
		region = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		region = g
	}
	require.NotEmpty(t, region)
	// 隐藏者在东区、圆盘内：结果为东区与圆盘之交
	b := region.Bound()
	assert.GreaterOrEqual(t, b.Min[0], 9.999)
	assert.LessOrEqual(t, b.Max[0], 10.08)

	raw, err := os.ReadFile(answers)
	require.NoError(t, err)
	var recs []question.Record
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "answered", r.Status)
	}
}
