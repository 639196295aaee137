package tilestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/tilestore/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrate applies the embedded schema to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// PGStore keeps archives in PostgreSQL, one row set per cache id.
type PGStore struct {
	pool    *pgxpool.Pool
	cacheID string
}

// Open connects to dsn. Save and Load operate on cacheID.
func Open(ctx context.Context, dsn, cacheID string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PGStore{pool: pool, cacheID: cacheID}, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

// Save replaces every tile stored under the store's cache id.
func (s *PGStore) Save(ctx context.Context, a Archive) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO tile_caches (cache_id, params, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (cache_id) DO UPDATE SET params = $2, updated_at = now()`,
		s.cacheID, EncodeParams(a.Params),
	); err != nil {
		return fmt.Errorf("save cache %q: %w", s.cacheID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM compressed_tiles WHERE cache_id = $1`, s.cacheID); err != nil {
		return fmt.Errorf("clear tiles of %q: %w", s.cacheID, err)
	}
	if err := upsertTiles(ctx, tx, s.cacheID, a.Tiles); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cache %q: %w", s.cacheID, err)
	}
	log.Debug("tile archive saved", zap.String("cache", s.cacheID), zap.Int("tiles", len(a.Tiles)))
	return nil
}

func (s *PGStore) Load(ctx context.Context) (Archive, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT params FROM tile_caches WHERE cache_id = $1`, s.cacheID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Archive{}, fmt.Errorf("%w: cache %q", ErrNotFound, s.cacheID)
	}
	if err != nil {
		return Archive{}, fmt.Errorf("querying cache %q: %w", s.cacheID, err)
	}
	params, err := DecodeParams(raw)
	if err != nil {
		return Archive{}, err
	}
	tiles, err := s.LoadTiles(ctx, s.cacheID)
	if err != nil {
		return Archive{}, err
	}
	return Archive{Params: params, Tiles: tiles}, nil
}

// SaveTiles inserts or replaces tiles of an existing cache.
func (s *PGStore) SaveTiles(ctx context.Context, cacheID string, tiles []Tile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertTiles(ctx, tx, cacheID, tiles); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertTiles(ctx context.Context, tx pgx.Tx, cacheID string, tiles []Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range tiles {
		batch.Queue(
			`INSERT INTO compressed_tiles (cache_id, tx, ty, tlayer, data)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (cache_id, tx, ty, tlayer) DO UPDATE SET data = $5`,
			cacheID, t.Key.X, t.Key.Y, t.Key.Layer, t.Data,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for _, t := range tiles {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck
			return fmt.Errorf("save tile %v: %w", t.Key, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close tile batch: %w", err)
	}
	return nil
}

// LoadTiles returns the tiles of cacheID ordered by y, x and layer.
func (s *PGStore) LoadTiles(ctx context.Context, cacheID string) ([]Tile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tx, ty, tlayer, data FROM compressed_tiles
		 WHERE cache_id = $1 ORDER BY ty, tx, tlayer`, cacheID)
	if err != nil {
		return nil, fmt.Errorf("querying tiles of %q: %w", cacheID, err)
	}
	defer rows.Close()

	var tiles []Tile
	for rows.Next() {
		var t Tile
		if err := rows.Scan(&t.Key.X, &t.Key.Y, &t.Key.Layer, &t.Data); err != nil {
			return nil, fmt.Errorf("scanning tile row: %w", err)
		}
		tiles = append(tiles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tile rows: %w", err)
	}
	return tiles, nil
}

// DeleteCache removes a cache and its tiles.
func (s *PGStore) DeleteCache(ctx context.Context, cacheID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tile_caches WHERE cache_id = $1`, cacheID); err != nil {
		return fmt.Errorf("deleting cache %q: %w", cacheID, err)
	}
	return nil
}
