package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG builds the Postgres-backed directory repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// Schema is the directory table DDL, applied by the CLI's init-schema
// command.
const Schema = `
CREATE TABLE IF NOT EXISTS gateway_directory (
	id                UUID PRIMARY KEY,
	oid               TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL,
	managing_org      TEXT NOT NULL DEFAULT '',
	home_community_id TEXT NOT NULL DEFAULT '',
	xcpd_url          TEXT NOT NULL DEFAULT '',
	xca_query_url     TEXT NOT NULL DEFAULT '',
	xca_retrieve_url  TEXT NOT NULL DEFAULT '',
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const entryCols = `id, oid, name, managing_org, home_community_id,
	xcpd_url, xca_query_url, xca_retrieve_url, active, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.OID, &e.Name, &e.ManagingOrg, &e.HomeCommunityID,
		&e.XCPDURL, &e.XCAQueryURL, &e.XCARetrieveURL, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gateway_directory (id, oid, name, managing_org, home_community_id,
			xcpd_url, xca_query_url, xca_retrieve_url, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.OID, e.Name, e.ManagingOrg, e.HomeCommunityID,
		e.XCPDURL, e.XCAQueryURL, e.XCARetrieveURL, e.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM gateway_directory WHERE id = $1`, id))
}

func (r *repoPG) GetByOID(ctx context.Context, oid string) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM gateway_directory WHERE oid = $1`, oid))
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE gateway_directory SET oid=$2, name=$3, managing_org=$4, home_community_id=$5,
			xcpd_url=$6, xca_query_url=$7, xca_retrieve_url=$8, active=$9, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.OID, e.Name, e.ManagingOrg, e.HomeCommunityID,
		e.XCPDURL, e.XCAQueryURL, e.XCARetrieveURL, e.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM gateway_directory WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, activeOnly bool) ([]*Entry, error) {
	q := `SELECT ` + entryCols + ` FROM gateway_directory`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
