// 命令行工具：读取底图与问题文件，按数据目录折叠出候选区域并输出 GeoJSON
// 可选 -hider lat,lon：先以隐藏者身份回答全部待回答问题再折叠
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hideseek/internal/answer"
	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"
	"hideseek/internal/pipeline"
	"hideseek/internal/question"
	"hideseek/internal/zones"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"
)

type options struct {
	base      string
	questions string
	data      string
	hider     string
	answers   string
	timeout   time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.base, "base", "", "底图 GeoJSON 文件，缺省为全球")
	flag.StringVar(&o.questions, "questions", "", "问题记录文件（.json/.yaml/.yml）")
	flag.StringVar(&o.data, "data", "data/zones", "分区与地点 GeoJSON 数据目录")
	flag.StringVar(&o.hider, "hider", "", "隐藏者坐标 lat,lon；设置后自动回答待回答问题")
	flag.StringVar(&o.answers, "answers-out", "", "隐藏者模式下写出已回答的问题记录")
	flag.DurationVar(&o.timeout, "timeout", 30*time.Second, "外部查询总时限")
	flag.Parse()
	logger.Setup()

	if o.questions == "" {
		fmt.Fprintln(os.Stderr, "usage: region-fold -questions FILE [-base FILE] [-data DIR] [-hider lat,lon]")
		os.Exit(2)
	}
	if err := run(context.Background(), o, os.Stdout); err != nil {
		logger.L().Error("region_fold_failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, out io.Writer) error {
	l := logger.L()
	base := geometry.FromBound(orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}})
	if o.base != "" {
		b, err := os.ReadFile(o.base)
		if err != nil {
			return err
		}
		if base, err = geometry.DecodeRegion(b); err != nil {
			return fmt.Errorf("base %s: %w", o.base, err)
		}
	}
	qs, err := loadQuestions(o.questions)
	if err != nil {
		return err
	}

	var hider *orb.Point
	if o.hider != "" {
		p, err := parseHider(o.hider)
		if err != nil {
			return err
		}
		hider = &p
	}

	snap, err := zones.LoadSnapshot(o.data)
	if err != nil {
		return err
	}
	ix := zones.NewIndex(snap)
	res := lookup.NewResolver(lookup.Providers{Locations: ix, Zones: ix, Features: ix}, nil, 0, l)
	rctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	lk, err := res.Resolve(rctx, qs, hider)
	if err != nil {
		return err
	}

	kernel := geometry.New(geometry.DefaultOptions())
	if hider != nil {
		answered, aerr := answer.New(kernel, l).AnswerAll(qs, *hider, lk)
		if aerr != nil {
			l.Warn("hider_answers_incomplete", "err", aerr)
		}
		qs = answered
		if o.answers != "" {
			if err := writeRecords(o.answers, qs); err != nil {
				return err
			}
		}
	}

	result := pipeline.New(kernel, l).Apply(base, qs, lk)
	return writeResult(out, result)
}

// parseHider 解析 "lat,lon"
func parseHider(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("hider %q: want lat,lon", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	p := orb.Point{lon, lat}
	if err := errors.Join(err1, err2); err != nil || !geometry.ValidPoint(p) {
		return orb.Point{}, fmt.Errorf("hider %q: invalid coordinate", s)
	}
	return p, nil
}

// loadQuestions：YAML 文件先转为 JSON，再走统一的记录解码
func loadQuestions(path string) ([]question.Question, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var v []map[string]any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("questions %s: %w", path, err)
		}
		if b, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("questions %s: %w", path, err)
		}
	}
	return question.DecodeRecords(b)
}

func writeRecords(path string, qs []question.Question) error {
	recs := make([]question.Record, 0, len(qs))
	for _, q := range qs {
		r, err := question.EncodeRecord(q)
		if err != nil {
			logger.L().Warn("record_encode_skipped", "question_id", q.ID, "err", err)
			continue
		}
		recs = append(recs, r)
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeResult(out io.Writer, r pipeline.Result) error {
	var region orb.Geometry = orb.MultiPolygon{}
	switch {
	case len(r.Region) == 1:
		region = r.Region[0]
	case len(r.Region) > 1:
		region = r.Region
	}
	f := geojson.NewFeature(region)
	f.Properties["empty"] = r.Empty
	f.Properties["steps"] = r.Steps
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	_, err = out.Write(append(b, '\n'))
	return err
}
