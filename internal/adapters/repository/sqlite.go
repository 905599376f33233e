package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id                TEXT PRIMARY KEY,
    region            TEXT    NOT NULL,
    role              TEXT    NOT NULL,
    vc_preference     TEXT    NOT NULL,
    duo_type          TEXT    NOT NULL,
    message           TEXT    NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL,
    posting_account   TEXT,
    best_rank_account TEXT
);

CREATE INDEX IF NOT EXISTS idx_posts_region_role ON posts(region, role);
CREATE INDEX IF NOT EXISTS idx_posts_created     ON posts(created_at DESC);

-- Single row; bumped in the same transaction as every mutation.
CREATE TABLE IF NOT EXISTS store_version (
    id      INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);
INSERT OR IGNORE INTO store_version (id, version) VALUES (1, 0);
`

const selectPosts = `SELECT id, region, role, vc_preference, duo_type, message,
       created_at, updated_at, posting_account, best_rank_account
FROM posts`

// SQLiteStore persists listings in SQLite (pure Go driver).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and applies the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrStoreOpen, dsn, err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrStoreOpen, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Query applies the prefilter as a WHERE clause.
func (s *SQLiteStore) Query(ctx context.Context, pf feed.Prefilter) ([]model.Post, error) {
	var (
		where []string
		args  []any
	)
	if len(pf.Regions) > 0 {
		where = append(where, "region IN ("+placeholders(len(pf.Regions))+")")
		for _, r := range pf.Regions {
			args = append(args, string(r))
		}
	}
	if len(pf.Roles) > 0 {
		where = append(where, "role IN ("+placeholders(len(pf.Roles))+")")
		for _, r := range pf.Roles {
			args = append(args, string(r))
		}
	}
	if pf.VCPreference != nil {
		where = append(where, "vc_preference = ?")
		args = append(args, string(*pf.VCPreference))
	}
	if pf.DuoType != nil {
		where = append(where, "duo_type = ?")
		args = append(args, string(*pf.DuoType))
	}

	q := selectPosts
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.SQLiteStore.Query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.SQLiteStore.Query: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.SQLiteStore.Query: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Version(ctx context.Context) (uint64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM store_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("repository.SQLiteStore.Version: %w", err)
	}
	return uint64(v), nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, p model.Post) error {
	if p.ID == "" {
		return ErrInvalid
	}
	posting, err := encodeAccount(p.PostingAccount)
	if err != nil {
		return fmt.Errorf("%w: posting account: %w", ErrInvalid, err)
	}
	best, err := encodeAccount(p.BestRankAccount)
	if err != nil {
		return fmt.Errorf("%w: best rank account: %w", ErrInvalid, err)
	}

	return s.withVersionBump(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO posts (id, region, role, vc_preference, duo_type, message, created_at, updated_at, posting_account, best_rank_account)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    region            = excluded.region,
    role              = excluded.role,
    vc_preference     = excluded.vc_preference,
    duo_type          = excluded.duo_type,
    message           = excluded.message,
    created_at        = excluded.created_at,
    updated_at        = excluded.updated_at,
    posting_account   = excluded.posting_account,
    best_rank_account = excluded.best_rank_account`,
			p.ID, string(p.Region), string(p.Role), string(p.VCPreference), string(p.DuoType), p.Message,
			p.CreatedAt.UnixMicro(), p.UpdatedAt.UnixMicro(), posting, best,
		)
		return err
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.withVersionBump(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.SQLiteStore.Count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withVersionBump(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository.SQLiteStore: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("repository.SQLiteStore: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE store_version SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("repository.SQLiteStore: bump version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository.SQLiteStore: commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (model.Post, error) {
	var (
		p                 model.Post
		region, role      string
		vc, duo           string
		created, updated  int64
		posting, bestRank sql.NullString
	)
	if err := r.Scan(&p.ID, &region, &role, &vc, &duo, &p.Message, &created, &updated, &posting, &bestRank); err != nil {
		return model.Post{}, err
	}
	p.Region = model.Region(region)
	p.Role = model.Role(role)
	p.VCPreference = model.VCPreference(vc)
	p.DuoType = model.DuoType(duo)
	p.CreatedAt = time.UnixMicro(created).UTC()
	p.UpdatedAt = time.UnixMicro(updated).UTC()

	var err error
	if p.PostingAccount, err = decodeAccount(posting); err != nil {
		return model.Post{}, err
	}
	if p.BestRankAccount, err = decodeAccount(bestRank); err != nil {
		return model.Post{}, err
	}
	return p, nil
}

func encodeAccount(a *model.Account) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeAccount(s sql.NullString) (*model.Account, error) {
	if !s.Valid {
		return nil, nil
	}
	var a model.Account
	if err := json.Unmarshal([]byte(s.String), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
