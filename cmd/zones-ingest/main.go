// 数据导入工具：把 GeoJSON 数据目录（分区与地点）批量写入 PostGIS
package main

import (
	"context"
	"flag"
	"os"

	"hideseek/internal/config"
	"hideseek/internal/logger"
	"hideseek/internal/migrate"
	"hideseek/internal/utils"
	"hideseek/internal/zones"
)

func main() {
	l := logger.Setup()
	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	dir := flag.String("data", cfg.DataDir, "GeoJSON 数据目录")
	flag.Parse()

	ctx := context.Background()
	db, err := utils.OpenPostgres(ctx, cfg.PG)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	snap, err := zones.LoadSnapshot(*dir)
	if err != nil {
		l.Error("zones_load_error", "dir", *dir, "err", err)
		os.Exit(1)
	}
	nz, np, err := zones.ImportSnapshot(ctx, db, snap)
	if err != nil {
		l.Error("zones_import_error", "err", err)
		os.Exit(1)
	}
	l.Info("ingest_done", "zones", nz, "places", np)
}
