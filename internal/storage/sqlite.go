package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "blastbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (and migrates) a sqlite-backed Store at cfg.Path.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- posts ----

const postCols = `id, media_kind, media_ref, body, markup_json, status, sent, created_at, updated_at`

func (s *sqliteStore) ListActivePosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postCols+` FROM posts WHERE status = ?`, string(PostActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreatePost(ctx context.Context, p Post) (int64, error) {
	if !p.Kind.Valid() {
		return 0, fmt.Errorf("invalid media kind %q", p.Kind)
	}
	if p.Status == "" {
		p.Status = PostActive
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(media_kind, media_ref, body, markup_json, status, sent, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		string(p.Kind), p.MediaRef, p.Body, p.MarkupJSON, string(p.Status), p.Sent, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) GetPost(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postCols+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

func (s *sqliteStore) SetPostStatus(ctx context.Context, id int64, status PostStatus) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchIncrementSent applies all deltas as a single UPDATE inside one
// transaction, mirroring the aggregator's take-and-clear flush. A zero-length
// map is a no-op.
func (s *sqliteStore) BatchIncrementSent(ctx context.Context, deltas map[int64]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	var (
		caseSQL strings.Builder
		args    []any
		ids     []any
	)
	caseSQL.WriteString("CASE id")
	for id, n := range deltas {
		caseSQL.WriteString(" WHEN ? THEN ?")
		args = append(args, id, n)
		ids = append(ids, id)
	}
	caseSQL.WriteString(" ELSE 0 END")

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf(
		`UPDATE posts SET sent = sent + %s, updated_at = ? WHERE id IN (%s)`,
		caseSQL.String(), placeholders)
	args = append(args, now)
	args = append(args, ids...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- recipients ----

func (s *sqliteStore) UpsertRecipient(ctx context.Context, r Recipient) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients(chat_id, first_name, last_name, username, lang_code, blocked, created_at)
		 VALUES(?,?,?,?,?,0,?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   first_name = excluded.first_name,
		   last_name  = excluded.last_name,
		   username   = excluded.username,
		   lang_code  = excluded.lang_code,
		   blocked    = 0,
		   blocked_at = NULL`,
		r.ChatID, r.FirstName, r.LastName, r.Username, r.LangCode, now)
	return err
}

func (s *sqliteStore) SetRecipientBlocked(ctx context.Context, chatID int64, blocked bool) error {
	var blockedAt any
	if blocked {
		blockedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE recipients SET blocked = ?, blocked_at = ? WHERE chat_id = ?`,
		boolToInt(blocked), blockedAt, chatID)
	return err
}

func (s *sqliteStore) ListUnblockedRecipients(ctx context.Context, excluding []int64) ([]int64, error) {
	query := `SELECT chat_id FROM recipients WHERE blocked = 0`
	var args []any
	if len(excluding) > 0 {
		query += ` AND chat_id NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(excluding)), ",") + `)`
		for _, id := range excluding {
			args = append(args, id)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var (
		p       Post
		kind    string
		status  string
		created string
		updated string
	)
	err := row.Scan(&p.ID, &kind, &p.MediaRef, &p.Body, &p.MarkupJSON, &status, &p.Sent, &created, &updated)
	if err != nil {
		return Post{}, err
	}
	p.Kind = MediaKind(kind)
	p.Status = PostStatus(status)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
