package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ginjaninja78/speakboard/internal/types"
)

// insertChunk bounds the rows per INSERT to stay under the bind parameter
// limit.
const insertChunk = 1000

// DB is the subset of *pgxpool.Pool used by the Postgres store.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS folders (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		image      BYTEA,
		position   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS icons (
		id           UUID PRIMARY KEY,
		folder_id    UUID NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
		title        TEXT NOT NULL,
		image        BYTEA,
		audio        BYTEA,
		quick_access BOOLEAN NOT NULL DEFAULT FALSE,
		position     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS icons_folder_position_idx ON icons (folder_id, position)`,
}

// Postgres stores the library in two tables, folders and icons, each row
// carrying its position in the collection.
type Postgres struct {
	db  DB
	qb  squirrel.StatementBuilderType
	log *slog.Logger
}

// NewPool creates a connection pool and pings the database.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgres creates a Postgres store on db.
func NewPostgres(db DB, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:  db,
		qb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log: logger.With("component", "postgres_store"),
	}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Load reads every folder and icon in position order.
func (p *Postgres) Load(ctx context.Context) ([]*types.Folder, error) {
	sql, args, err := p.qb.
		Select("id", "name", "is_default", "image").
		From("folders").
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build folders query: %w", err)
	}

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}

	var folders []*types.Folder
	byID := make(map[uuid.UUID]*types.Folder)
	for rows.Next() {
		f := &types.Folder{Icons: []types.Icon{}}
		if err := rows.Scan(&f.ID, &f.Name, &f.IsDefault, &f.Image); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
		byID[f.ID] = f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	sql, args, err = p.qb.
		Select("id", "folder_id", "title", "image", "audio", "quick_access").
		From("icons").
		OrderBy("folder_id", "position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build icons query: %w", err)
	}

	rows, err = p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query icons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			icon     types.Icon
			folderID uuid.UUID
		)
		if err := rows.Scan(&icon.ID, &folderID, &icon.Title, &icon.Image, &icon.Audio, &icon.QuickAccess); err != nil {
			return nil, fmt.Errorf("scan icon: %w", err)
		}
		f, ok := byID[folderID]
		if !ok {
			continue
		}
		f.Icons = append(f.Icons, icon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate icons: %w", err)
	}

	if folders == nil {
		folders = []*types.Folder{}
	}
	p.log.DebugContext(ctx, "library loaded", slog.Int("folders", len(folders)))
	return folders, nil
}

// Save upserts every folder and icon with its current position and deletes
// rows that are no longer in the collection, in one transaction.
func (p *Postgres) Save(ctx context.Context, folders []*types.Folder) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	folderIDs := make([]uuid.UUID, 0, len(folders))
	var iconIDs []uuid.UUID

	folderRows := make([][]any, 0, len(folders))
	var iconRows [][]any
	for i, f := range folders {
		folderIDs = append(folderIDs, f.ID)
		folderRows = append(folderRows, []any{f.ID, f.Name, f.IsDefault, f.Image, i})
		for j, icon := range f.Icons {
			iconIDs = append(iconIDs, icon.ID)
			iconRows = append(iconRows, []any{icon.ID, f.ID, icon.Title, icon.Image, icon.Audio, icon.QuickAccess, j})
		}
	}

	if err = p.upsert(ctx, tx, "folders",
		[]string{"id", "name", "is_default", "image", "position"},
		"ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, is_default = EXCLUDED.is_default, image = EXCLUDED.image, position = EXCLUDED.position",
		folderRows); err != nil {
		return err
	}
	if err = p.upsert(ctx, tx, "icons",
		[]string{"id", "folder_id", "title", "image", "audio", "quick_access", "position"},
		"ON CONFLICT (id) DO UPDATE SET folder_id = EXCLUDED.folder_id, title = EXCLUDED.title, audio = EXCLUDED.audio, quick_access = EXCLUDED.quick_access, position = EXCLUDED.position",
		iconRows); err != nil {
		return err
	}

	if err = p.deleteMissing(ctx, tx, "icons", iconIDs); err != nil {
		return err
	}
	if err = p.deleteMissing(ctx, tx, "folders", folderIDs); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	p.log.InfoContext(ctx, "library saved", slog.Int("folders", len(folders)), slog.Int("icons", len(iconIDs)))
	return nil
}

func (p *Postgres) upsert(ctx context.Context, tx pgx.Tx, table string, columns []string, conflict string, rows [][]any) error {
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))

		insert := p.qb.Insert(table).Columns(columns...).Suffix(conflict)
		for _, row := range rows[start:end] {
			insert = insert.Values(row...)
		}

		sql, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build %s insert: %w", table, err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (p *Postgres) deleteMissing(ctx context.Context, tx pgx.Tx, table string, keep []uuid.UUID) error {
	del := p.qb.Delete(table)
	if len(keep) > 0 {
		del = del.Where("NOT (id = ANY(?))", keep)
	}

	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build %s delete: %w", table, err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}
