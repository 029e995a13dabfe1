package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fairshare/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the datasets table if missing (dev helper).
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS datasets (
        id UUID PRIMARY KEY,
        payload JSONB NOT NULL,
        seq BIGSERIAL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	return err
}

func (p *Postgres) SaveDataset(ctx context.Context, ds model.Dataset) (string, error) {
	id := uuid.New()
	ds.ID = id.String()
	payload, err := json.Marshal(ds)
	if err != nil {
		return "", fmt.Errorf("marshal dataset: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO datasets (id, payload) VALUES ($1, $2)`, id, payload)
	if err != nil {
		return "", err
	}
	return ds.ID, nil
}

func (p *Postgres) GetDataset(ctx context.Context, id string) (model.Dataset, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM datasets WHERE id=$1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, ErrNotFound
	}
	if err != nil {
		return model.Dataset{}, err
	}
	var ds model.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return model.Dataset{}, fmt.Errorf("unmarshal dataset %s: %w", id, err)
	}
	return ds, nil
}

func (p *Postgres) ListDatasets(ctx context.Context, cursor string, limit int) ([]model.Dataset, string, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT payload FROM datasets ORDER BY seq LIMIT $1`
	args := []any{limit}
	if cursor != "" {
		q = `SELECT payload FROM datasets WHERE seq > (SELECT seq FROM datasets WHERE id=$2) ORDER BY seq LIMIT $1`
		args = append(args, cursor)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Dataset{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, "", err
		}
		var ds model.Dataset
		if err := json.Unmarshal(payload, &ds); err != nil {
			return nil, "", err
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit && len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}
