package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthorityRepository stores the set of role names the system recognises.
type AuthorityRepository interface {
	List(ctx context.Context) ([]string, error)
	Ensure(ctx context.Context, name string) error
}

type authorityRepository struct {
	pool *pgxpool.Pool
}

// NewAuthorityRepository returns a Postgres-backed implementation.
func NewAuthorityRepository(pool *pgxpool.Pool) AuthorityRepository {
	return &authorityRepository{pool: pool}
}

func (r *authorityRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM authorities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *authorityRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO authorities (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	return err
}
