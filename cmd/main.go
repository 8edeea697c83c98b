// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hideseek/internal/answer"
	"hideseek/internal/api"
	"hideseek/internal/config"
	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"
	"hideseek/internal/middleware"
	"hideseek/internal/migrate"
	"hideseek/internal/pipeline"
	"hideseek/internal/utils"
	"hideseek/internal/zones"
)

func main() {
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, closeProviders, err := openProviders(ctx, cfg)
	if err != nil {
		l.Error("zones_open_error", "source", cfg.ZonesSource, "err", err)
		os.Exit(1)
	}
	defer closeProviders()

	// 查询缓存：进程内 LRU 在前，Redis（可选）在后，命中下层时回填上层
	caches := lookup.Chain{lookup.NewMemoryCache(cfg.LookupCacheSize, cfg.LookupCacheTTL())}
	if rc := utils.OpenRedis(cfg.Redis); rc != nil {
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
			caches = append(caches, lookup.NewRedisCache(rc, "hideseek:lookup:", cfg.LookupCacheTTL()))
		}
		defer rc.Close()
	} else {
		l.Info("redis_disabled")
	}

	kernel := geometry.New(cfg.Geometry())
	srv := &api.Server{
		Resolver:      lookup.NewResolver(providers, caches, cfg.LookupConcurrency, l),
		Zones:         providers.Zones,
		Pipeline:      pipeline.New(kernel, l),
		Answers:       answer.New(kernel, l),
		LookupTimeout: cfg.LookupTimeout(),
		Log:           l,
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, api.BuildRoutes(srv)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	handler := middleware.RateLimit(cfg.RateLimitEnabled, cfg.RateLimitQPS)(mux)
	handler = logger.AccessMiddleware(l)(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "hideseek.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}

// openProviders：按 ZONES_SOURCE 选择 GeoJSON 快照或 PostGIS
func openProviders(ctx context.Context, cfg *config.Config) (lookup.Providers, func(), error) {
	l := logger.L()
	if cfg.ZonesSource == "postgres" {
		db, err := utils.OpenPostgres(ctx, cfg.PG)
		if err != nil {
			return lookup.Providers{}, nil, err
		}
		l.Info("db_open_ok")
		if err := migrate.EnsureSchema(db); err != nil {
			_ = db.Close()
			return lookup.Providers{}, nil, err
		}
		pg := zones.NewPGProvider(db)
		return lookup.Providers{Locations: pg, Zones: pg, Features: pg}, func() { _ = db.Close() }, nil
	}
	snap, err := zones.LoadSnapshot(cfg.DataDir)
	if err != nil {
		return lookup.Providers{}, nil, err
	}
	ix := zones.NewIndex(snap)
	zc, pc := ix.Categories()
	l.Info("zones_index_ready", "zone_categories", zc, "place_categories", pc)
	return lookup.Providers{Locations: ix, Zones: ix, Features: ix}, func() {}, nil
}
