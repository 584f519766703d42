package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// UserRepository defines persistence access for user accounts.
//
// Core reads never load authorities. Callers that need the role set ask for
// it through GetAuthorities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User, authorities []string) error
	Update(ctx context.Context, user *domain.User, authorities []string) error
	DeleteByUsername(ctx context.Context, username string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByActivationKey(ctx context.Context, key string) (*domain.User, error)
	List(ctx context.Context, page PageRequest) ([]domain.User, int64, error)
	GetAuthorities(ctx context.Context, userID string) ([]string, error)
}

const (
	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"
)

const userColumns = `id, username, email, first_name, last_name, image_url, lang_key, activated,
        activation_key, password_hash, created_by, created_at, last_modified_by, last_modified_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User, authorities []string) error {
	const query = `
        INSERT INTO users (id, username, email, first_name, last_name, image_url, lang_key, activated,
            activation_key, password_hash, created_by, created_at, last_modified_by, last_modified_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query,
			user.ID,
			user.Username,
			user.Email,
			user.FirstName,
			user.LastName,
			user.ImageURL,
			user.LangKey,
			user.Activated,
			user.ActivationKey,
			user.PasswordHash,
			user.CreatedBy,
			user.CreatedAt,
			user.LastModifiedBy,
			user.LastModifiedAt,
		); err != nil {
			return mapPgError(err)
		}
		return replaceAuthorities(ctx, tx, user.ID, authorities)
	})
}

func (r *userRepository) Update(ctx context.Context, user *domain.User, authorities []string) error {
	const query = `
        UPDATE users
        SET username=$1, email=$2, first_name=$3, last_name=$4, image_url=$5, lang_key=$6, activated=$7,
            activation_key=$8, password_hash=$9, last_modified_by=$10, last_modified_at=$11
        WHERE id=$12`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query,
			user.Username,
			user.Email,
			user.FirstName,
			user.LastName,
			user.ImageURL,
			user.LangKey,
			user.Activated,
			user.ActivationKey,
			user.PasswordHash,
			user.LastModifiedBy,
			user.LastModifiedAt,
			user.ID,
		)
		if err != nil {
			return mapPgError(err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		if authorities == nil {
			return nil
		}
		return replaceAuthorities(ctx, tx, user.ID, authorities)
	})
}

func (r *userRepository) DeleteByUsername(ctx context.Context, username string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username=$1`, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *userRepository) GetByActivationKey(ctx context.Context, key string) (*domain.User, error) {
	return r.getOne(ctx, "activation_key", key)
}

func (r *userRepository) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s=$1`, userColumns, column)

	user, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		return nil, mapPgReadError(err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, page PageRequest) ([]domain.User, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username<>$1`, domain.AnonymousUsername).Scan(&total); err != nil {
		return nil, 0, err
	}

	direction := "ASC"
	if page.Desc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username<>$1 ORDER BY %s %s, id ASC LIMIT %d OFFSET %d`,
		userColumns, sortColumn(page.Sort), direction, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, domain.AnonymousUsername)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *user)
	}
	return result, total, rows.Err()
}

func (r *userRepository) GetAuthorities(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT authority_name FROM user_authorities WHERE user_id=$1 ORDER BY authority_name`, userID)
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

func replaceAuthorities(ctx context.Context, tx pgx.Tx, userID string, authorities []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_authorities WHERE user_id=$1`, userID); err != nil {
		return err
	}
	for _, name := range authorities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_authorities (user_id, authority_name) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			userID, name); err != nil {
			return err
		}
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.ImageURL,
		&user.LangKey,
		&user.Activated,
		&user.ActivationKey,
		&user.PasswordHash,
		&user.CreatedBy,
		&user.CreatedAt,
		&user.LastModifiedBy,
		&user.LastModifiedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func sortColumn(field SortField) string {
	switch field {
	case SortByUsername:
		return "username"
	case SortByEmail:
		return "email"
	case SortByCreatedAt:
		return "created_at"
	default:
		return "id"
	}
}

// mapPgReadError reports a lookup that cannot match any row as ErrNotFound.
// A malformed key, such as a non-UUID id, is such a lookup.
func mapPgReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation {
		return ErrNotFound
	}
	return err
}

// mapPgError turns unique violations into DuplicateError keyed by the guarded field.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return &DuplicateError{Field: FieldUsername}
	case strings.Contains(pgErr.ConstraintName, "email"):
		return &DuplicateError{Field: FieldEmail}
	case strings.Contains(pgErr.ConstraintName, "activation_key"):
		return &DuplicateError{Field: FieldActivationKey}
	default:
		return &DuplicateError{Field: pgErr.ConstraintName}
	}
}
