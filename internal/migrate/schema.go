package migrate

import (
	"database/sql"

	"hideseek/internal/logger"
)

// 背景：首次运行自动创建分区与地点表及空间索引，保障后续导入与查询
// 约束：依赖 PostGIS 扩展；使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE IF NOT EXISTS zones (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			geom geometry(MultiPolygon, 4326) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_zones_category ON zones(category)`,
		`CREATE INDEX IF NOT EXISTS idx_zones_geom ON zones USING GIST(geom)`,
		`CREATE TABLE IF NOT EXISTS places (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			geom geometry(Point, 4326) NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_place ON places(category, name, geom)`,
		`CREATE INDEX IF NOT EXISTS idx_places_geom ON places USING GIST(geom)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
