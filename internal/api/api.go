// 包 api：集中注册 HTTP API 路由以解耦主入口（折叠、作答、分区查询）
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"hideseek/internal/answer"
	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"
	"hideseek/internal/metrics"
	"hideseek/internal/pipeline"
	"hideseek/internal/question"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// 请求体上限；底图与自定义分区都是 GeoJSON，给足余量
const maxBody = 8 << 20

// Server：路由依赖集合
type Server struct {
	Resolver *lookup.Resolver
	Zones    lookup.ZoneProvider
	Pipeline *pipeline.Pipeline
	Answers  *answer.Computer
	// LookupTimeout：单次请求内外部查询的总时限
	LookupTimeout time.Duration
	Log           *slog.Logger
}

func (s *Server) log() *slog.Logger {
	if s.Log == nil {
		return logger.L()
	}
	return s.Log
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/region", instrument("region", http.HandlerFunc(s.handleRegion)))
	mux.Handle("/answer", instrument("answer", http.HandlerFunc(s.handleAnswer)))
	mux.Handle("/zone", instrument("zone", http.HandlerFunc(s.handleZone)))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(endpoint).Inc()
		next.ServeHTTP(w, r)
		metrics.RequestDurationMs.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func (s *Server) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.LookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.LookupTimeout)
}

// 文档注释：POST /region
// 背景：客户端提交底图与问题记录，返回折叠后的候选区域及逐题报告。
// 约束：单题解码失败或查询超时不影响整体（以 skipped 出现在报告中）；空结果以 empty=true 返回 200；仅请求本身被取消时返回 504。
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req regionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	base := geometry.FromBound(orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}})
	if len(req.Base) > 0 && string(req.Base) != "null" {
		b, err := geometry.DecodeRegion(req.Base)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		base = b
	}
	qs := make([]question.Question, 0, len(req.Questions))
	for _, rec := range req.Questions {
		qs = append(qs, question.Decode(rec))
	}

	runID := uuid.NewString()
	l, err := s.Resolver.ResolveWithin(r.Context(), s.LookupTimeout, qs, nil)
	if err != nil {
		s.log().Warn("region_lookup_aborted", "run_id", runID, "err", err)
		writeError(w, http.StatusGatewayTimeout, "lookup aborted: "+err.Error())
		return
	}

	start := time.Now()
	res := s.Pipeline.Apply(base, qs, l)
	metrics.FoldDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	for _, st := range res.Steps {
		metrics.FoldStepsTotal.WithLabelValues(string(st.Kind), string(st.Outcome)).Inc()
	}
	if res.Empty {
		metrics.EmptyResultsTotal.Inc()
	}
	s.log().Info("region_folded", "run_id", runID, "questions", len(qs), "empty", res.Empty, "vertices", geometry.NumVertices(res.Region))

	writeJSON(w, http.StatusOK, regionResponse{
		RunID:  runID,
		Region: geometry.EncodeRegion(res.Region),
		Empty:  res.Empty,
		Steps:  res.Steps,
	})
}

// 文档注释：POST /answer
// 背景：隐藏者模式，按隐藏者坐标为单个问题计算答案并回写到记录。
// 约束：畸形/未知问题返回 422；隐藏者坐标缺失或非法返回 400；外部查询失败或超时返回 503。
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req answerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hider, ok := req.Hider.point()
	if !ok || !geometry.ValidPoint(hider) {
		writeError(w, http.StatusBadRequest, "hider must have valid lat and lng")
		return
	}
	q := question.Decode(req.Question)

	l, err := s.Resolver.ResolveWithin(r.Context(), s.LookupTimeout, []question.Question{q}, &hider)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "lookup aborted: "+err.Error())
		return
	}
	a, err := s.Answers.Compute(q, hider, l)
	if err != nil {
		switch {
		case errors.Is(err, answer.ErrUnanswerable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, lookup.ErrLookupUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, geometry.ErrDegenerateInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log().Warn("answer_failed", "question_id", q.ID, "kind", q.Kind(), "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	aq, err := q.WithAnswer(a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rec, err := question.EncodeRecord(aq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.AnswersTotal.WithLabelValues(string(q.Kind())).Inc()
	writeJSON(w, http.StatusOK, answerResponse{Answer: a, Question: rec})
}

// GET /zone?lat=&lon=&category=
func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	qv := r.URL.Query()
	lat, err1 := strconv.ParseFloat(qv.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(qv.Get("lon"), 64)
	category := qv.Get("category")
	p := orb.Point{lon, lat}
	if err1 != nil || err2 != nil || category == "" || !geometry.ValidPoint(p) {
		writeError(w, http.StatusBadRequest, "lat, lon and category are required")
		return
	}
	ctx, cancel := s.lookupCtx(r.Context())
	defer cancel()
	z, err := s.Zones.ZoneAt(ctx, category, p)
	if errors.Is(err, lookup.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no zone contains this point")
		return
	}
	if err != nil {
		s.log().Warn("zone_lookup_failed", "category", category, "err", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, zoneResponse{ID: z.ID, Name: z.Name, Category: z.Category, Region: geometry.EncodeRegion(z.Region)})
}

func decodeBody(r *http.Request, dst any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.New("invalid json body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
