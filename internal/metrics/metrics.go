package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hideseek_requests_total",
		Help: "Total number of API requests by endpoint",
	}, []string{"endpoint"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hideseek_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"endpoint"})
	FoldStepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hideseek_fold_steps_total",
		Help: "Fold steps by question kind and outcome",
	}, []string{"kind", "outcome"})
	FoldDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hideseek_fold_duration_ms",
		Help:    "Whole fold duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hideseek_empty_results_total",
		Help: "Total number of folds ending in an empty region",
	})
	AnswersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hideseek_answers_total",
		Help: "Computed hider answers by question kind",
	}, []string{"kind"})
	LookupCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hideseek_lookup_cache_hits_total",
		Help: "Lookup cache hits by cache layer",
	}, []string{"layer"})
	LookupCacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hideseek_lookup_cache_misses_total",
		Help: "Lookup cache misses by cache layer",
	}, []string{"layer"})
	LookupFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hideseek_lookup_fail_total",
		Help: "Provider lookup failures by lookup kind",
	}, []string{"lookup"})
	LookupDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hideseek_lookup_duration_ms",
		Help:    "Provider lookup duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"lookup"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hideseek_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(FoldStepsTotal)
	prometheus.MustRegister(FoldDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(LookupCacheHitsTotal)
	prometheus.MustRegister(LookupCacheMissesTotal)
	prometheus.MustRegister(LookupFailTotal)
	prometheus.MustRegister(LookupDurationMs)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
