package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/oversight-gate/internal/audit"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) (*AuditRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open audit db: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}, nil
}

// Ping проверяет доступность БД при старте (main делает fail-fast)
func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append дописывает один снимок перехода. Только INSERT: таблица
// approval_events — append-only журнал, UPDATE по ней не существует.
func (r *AuditRepo) Append(ctx context.Context, e audit.Event) error {
	params, err := json.Marshal(e.Parameters)
	if err != nil {
		// Параметры transport-safe, но NULL лучше потерянной строки аудита
		params = nil
	}

	query := `INSERT INTO approval_events
	          (partition_key, row_key, status, ts, action_description, parameters, approver, error, completion_ts, execution_ts)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, query,
		e.PartitionKey, e.RowKey, e.Status.String(), e.Timestamp,
		e.ActionDescription, params, nullable(e.Approver), nullable(e.Error),
		nullable(e.CompletionTimestamp), nullable(e.ExecutionTimestamp),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to append audit event: %w", err)
	}
	return nil
}

// nullable маппит пустые строки в NULL (поля контекстно-зависимы от перехода)
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
