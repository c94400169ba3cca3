// Package store caches finished transcripts in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/obiente/tranquitor/internal/transcript"
)

const schema = `
	PRAGMA busy_timeout       = 10000;
	PRAGMA journal_mode       = WAL;
	PRAGMA synchronous        = NORMAL;
	PRAGMA foreign_keys       = ON;
	PRAGMA temp_store         = MEMORY;

	create table if not exists transcripts (
		key text primary key not null,
		created_at integer not null
	);

	create table if not exists segments (
		transcript_key text not null references transcripts(key) on delete cascade,
		idx integer not null,
		start_ms integer not null,
		end_ms integer not null,
		text text not null,
		status text not null,
		primary key (transcript_key, idx)
	);`

type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get loads the transcript stored under key.
func (c *Cache) Get(ctx context.Context, key string) (transcript.Transcript, bool, error) {
	var created int64
	err := c.db.QueryRowContext(ctx, "select created_at from transcripts where key = $1", key).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get transcript: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		"select idx, start_ms, end_ms, text, status from segments where transcript_key = $1 order by idx",
		key,
	)
	if err != nil {
		return nil, false, fmt.Errorf("get segments: %w", err)
	}
	defer rows.Close()

	out := transcript.Transcript{}
	for rows.Next() {
		var (
			s              transcript.Segment
			startMs, endMs int64
			status         string
		)
		if err := rows.Scan(&s.Index, &startMs, &endMs, &s.Text, &status); err != nil {
			return nil, false, fmt.Errorf("scan segment: %w", err)
		}
		if s.Status, err = transcript.ParseStatus(status); err != nil {
			return nil, false, err
		}
		s.Start, s.End = time.Duration(startMs)*time.Millisecond, time.Duration(endMs)*time.Millisecond
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("read segments: %w", err)
	}
	return out, true, nil
}

// Put replaces whatever is stored under key with t.
func (c *Cache) Put(ctx context.Context, key string, t transcript.Transcript) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put transcript: begin trx: %w", err)
	}
	if err := put(ctx, tx, key, t); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback put transcript: %w", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put transcript: committing: %w", err)
	}
	return nil
}

func put(ctx context.Context, tx *sql.Tx, key string, t transcript.Transcript) error {
	if _, err := tx.ExecContext(ctx, "delete from transcripts where key = $1", key); err != nil {
		return fmt.Errorf("clearing transcript: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "insert into transcripts (key, created_at) values ($1, $2)", key, time.Now().Unix()); err != nil {
		return fmt.Errorf("inserting transcript: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `insert into segments (
		transcript_key, idx, start_ms, end_ms, text, status
	) values ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("inserting segments: prepare: %w", err)
	}
	defer stmt.Close()
	for _, s := range t {
		if _, err := stmt.ExecContext(ctx, key, s.Index, s.Start.Milliseconds(), s.End.Milliseconds(), s.Text, s.Status.String()); err != nil {
			return fmt.Errorf("inserting segment %d: %w", s.Index, err)
		}
	}
	return nil
}
