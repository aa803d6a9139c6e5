package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"github.com/davekyte/docdock/internal/data"
)

// PostgresRepo implements ResolutionRepo backed by PostgreSQL.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo constructs a repository using the provided DSN.
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresRepo{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRepoFromEnv constructs a DSN using component env vars.
// Recognized envs (with defaults):
//
//	POSTGRES_HOST (postgres), POSTGRES_PORT (5432), POSTGRES_DB (docdock),
//	POSTGRES_USER (docdock), POSTGRES_PASSWORD (empty), POSTGRES_SSLMODE (disable)
//
// Credentials and db name are URL-encoded to handle special characters safely.
func NewPostgresRepoFromEnv() (*PostgresRepo, error) {
	host := getenv("POSTGRES_HOST", "postgres")
	port := getenv("POSTGRES_PORT", "5432")
	db := getenv("POSTGRES_DB", "docdock")
	user := getenv("POSTGRES_USER", "docdock")
	pass := getenv("POSTGRES_PASSWORD", "")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := url.Values{}
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return NewPostgresRepo(u.String())
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (r *PostgresRepo) Close() error { return r.db.Close() }

func (r *PostgresRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS resolutions (
    id UUID PRIMARY KEY,
    consumer_id TEXT NOT NULL,
    uri TEXT NOT NULL,
    cache_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    cache_file_name TEXT NOT NULL DEFAULT '',
    expiration_seconds BIGINT NOT NULL DEFAULT 0,
    method TEXT NOT NULL DEFAULT '',
    headers JSONB,
    body TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    local_path TEXT NOT NULL DEFAULT '',
    from_cache BOOLEAN NOT NULL DEFAULT FALSE,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
`)
	return err
}

const resolutionColumns = `id,consumer_id,uri,cache_enabled,cache_file_name,expiration_seconds,method,headers,body,status,local_path,from_cache,error,created_at`

// List implements ResolutionReader.List
func (r *PostgresRepo) List(ctx context.Context) (data.Resolutions, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resolutionColumns+` FROM resolutions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out data.Resolutions
	for rows.Next() {
		rec, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get implements ResolutionReader.Get
func (r *PostgresRepo) Get(ctx context.Context, id string) (*data.Resolution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resolutionColumns+` FROM resolutions WHERE id=$1`, id)
	rec, err := scanResolution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Add implements ResolutionWriter.Add
func (r *PostgresRepo) Add(ctx context.Context, rec *data.Resolution) (*data.Resolution, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	headersJSON, _ := json.Marshal(rec.Source.Headers)
	_, err := r.db.ExecContext(ctx, `INSERT INTO resolutions (`+resolutionColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.ConsumerID, rec.Source.URI, rec.Source.CacheEnabled, rec.Source.CacheFileName,
		rec.Source.ExpirationSeconds, rec.Source.Method, nullJSON(headersJSON), rec.Source.Body,
		string(rec.Status), rec.LocalPath, rec.FromCache, rec.Error, rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, rec.ID)
}

// Update fetches the row under lock, applies mutate, and writes it back.
func (r *PostgresRepo) Update(ctx context.Context, id string, mutate func(*data.Resolution) error) (*data.Resolution, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		// Safe rollback when not committed
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+resolutionColumns+` FROM resolutions WHERE id=$1 FOR UPDATE`, id)
	cur, err := scanResolution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}

	next := cur.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}

	headersJSON, _ := json.Marshal(next.Source.Headers)
	if _, err := tx.ExecContext(ctx, `UPDATE resolutions SET consumer_id=$1, uri=$2, cache_enabled=$3, cache_file_name=$4, expiration_seconds=$5, method=$6, headers=$7, body=$8, status=$9, local_path=$10, from_cache=$11, error=$12 WHERE id=$13`,
		next.ConsumerID, next.Source.URI, next.Source.CacheEnabled, next.Source.CacheFileName,
		next.Source.ExpirationSeconds, next.Source.Method, nullJSON(headersJSON), next.Source.Body,
		string(next.Status), next.LocalPath, next.FromCache, next.Error, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete implements ResolutionWriter.Delete
func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resolutions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}

// Helpers

type rowScanner interface{ Scan(dest ...any) error }

func scanResolution(rs rowScanner) (*data.Resolution, error) {
	var (
		rec        data.Resolution
		status     string
		headersRaw sql.NullString
	)
	if err := rs.Scan(&rec.ID, &rec.ConsumerID, &rec.Source.URI, &rec.Source.CacheEnabled,
		&rec.Source.CacheFileName, &rec.Source.ExpirationSeconds, &rec.Source.Method,
		&headersRaw, &rec.Source.Body, &status, &rec.LocalPath, &rec.FromCache,
		&rec.Error, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Status = data.ResolutionStatus(status)
	if headersRaw.Valid && headersRaw.String != "" {
		_ = json.Unmarshal([]byte(headersRaw.String), &rec.Source.Headers)
	}
	return &rec, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return string(b)
}
