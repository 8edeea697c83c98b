package zones

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hideseek/internal/geometry"
	"hideseek/internal/logger"
	"hideseek/internal/lookup"
	"hideseek/internal/question"

	"github.com/paulmach/orb"

	_ "github.com/lib/pq"
)

// 文档注释：PostGIS 数据源
// 背景：多实例部署或数据量较大时，分区与地点放在 PostgreSQL/PostGIS 中，由空间索引完成筛选。
// 约束：表结构见 migrate.EnsureSchema；几何以 GeoJSON 文本往返，SRID 4326；距离按 geography 计算（米）。
type PGProvider struct {
	db *sql.DB
	// featureLimit：测量题返回的候选要素数
	featureLimit int
}

var (
	_ lookup.LocationProvider = (*PGProvider)(nil)
	_ lookup.ZoneProvider     = (*PGProvider)(nil)
	_ lookup.FeatureProvider  = (*PGProvider)(nil)
)

func NewPGProvider(db *sql.DB) *PGProvider { return &PGProvider{db: db, featureLimit: 4} }

func (p *PGProvider) ZoneAt(ctx context.Context, category string, pt orb.Point) (lookup.Zone, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, name, category, ST_AsGeoJSON(geom) FROM zones
		 WHERE category=$1 AND ST_Covers(geom, ST_SetSRID(ST_MakePoint($2,$3),4326))
		 ORDER BY ST_Area(geom) ASC LIMIT 1`, category, pt[0], pt[1])
	var z lookup.Zone
	var gj string
	if err := row.Scan(&z.ID, &z.Name, &z.Category, &gj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lookup.Zone{}, lookup.ErrNotFound
		}
		return lookup.Zone{}, err
	}
	region, err := geometry.DecodeRegion([]byte(gj))
	if err != nil {
		return lookup.Zone{}, fmt.Errorf("zone %s geometry: %w", z.ID, err)
	}
	z.Region = region
	logger.L().Debug("pg_zone_hit", "category", category, "id", z.ID)
	return z, nil
}

func (p *PGProvider) Locations(ctx context.Context, category string, center orb.Point, meters float64) ([]question.Place, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT name, ST_X(geom), ST_Y(geom) FROM places
		 WHERE category=$1 AND ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($2,$3),4326)::geography, $4)
		 ORDER BY id`, category, center[0], center[1], meters)
	if err != nil {
		return nil, err
	}
	return scanPlaces(rows)
}

func (p *PGProvider) Features(ctx context.Context, category string, near orb.Point) ([]question.Place, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT name, ST_X(geom), ST_Y(geom) FROM places
		 WHERE category=$1
		 ORDER BY geom <-> ST_SetSRID(ST_MakePoint($2,$3),4326) LIMIT $4`, category, near[0], near[1], p.featureLimit)
	if err != nil {
		return nil, err
	}
	return scanPlaces(rows)
}

func scanPlaces(rows *sql.Rows) ([]question.Place, error) {
	defer rows.Close()
	out := []question.Place{}
	for rows.Next() {
		var pl question.Place
		if err := rows.Scan(&pl.Name, &pl.Point[0], &pl.Point[1]); err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

// 文档注释：快照写入 PostGIS
// 背景：zones-ingest 工具把 GeoJSON 数据目录导入数据库，供 PGProvider 查询。
// 约束：单事务；分区按 id UPSERT，地点按 (category,name,geom) 去重；返回写入的分区数与地点数。
func ImportSnapshot(ctx context.Context, db *sql.DB, snap *Snapshot) (int, int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	zstmt, err := tx.PrepareContext(ctx,
		`INSERT INTO zones(id, name, category, geom)
		 VALUES($1, $2, $3, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($4),4326)))
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, category=EXCLUDED.category, geom=EXCLUDED.geom`)
	if err != nil {
		return 0, 0, err
	}
	defer zstmt.Close()
	nz := 0
	for _, z := range snap.Zones {
		gj, err := json.Marshal(geometry.EncodeRegion(z.Region))
		if err != nil {
			return 0, 0, fmt.Errorf("encode zone %s: %w", z.ID, err)
		}
		if _, err := zstmt.ExecContext(ctx, z.ID, z.Name, z.Category, string(gj)); err != nil {
			return 0, 0, fmt.Errorf("insert zone %s: %w", z.ID, err)
		}
		nz++
	}

	pstmt, err := tx.PrepareContext(ctx,
		`INSERT INTO places(name, category, geom)
		 VALUES($1, $2, ST_SetSRID(ST_MakePoint($3,$4),4326))
		 ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, 0, err
	}
	defer pstmt.Close()
	np := 0
	for _, p := range snap.Places {
		if _, err := pstmt.ExecContext(ctx, p.Name, p.Category, p.Point[0], p.Point[1]); err != nil {
			return 0, 0, fmt.Errorf("insert place %q: %w", p.Name, err)
		}
		np++
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	logger.L().Info("zones_import_done", "zones", nz, "places", np)
	return nz, np, nil
}
