package utils

import (
	"context"
	"database/sql"
	"time"

	"hideseek/internal/config"
	"hideseek/internal/logger"

	_ "github.com/lib/pq"
)

// OpenPostgres：按配置打开连接池并探活
// 约束：Ping 超时 5s；失败时关闭连接池并返回错误
func OpenPostgres(ctx context.Context, pg config.PG) (*sql.DB, error) {
	db, err := sql.Open("postgres", pg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(pg.MaxOpenConns)
	db.SetMaxIdleConns(pg.MaxIdleConns)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.L().Debug("pg_open", "host", pg.Host, "db", pg.DB)
	return db, nil
}
