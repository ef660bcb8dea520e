package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/models"
)

type postgresRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgresRepository(logger zerolog.Logger, pgPool *pgxpool.Pool) Repository {
	return &postgresRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *postgresRepository) Save(ctx context.Context, identity *models.Identity) error {
	const insertIdentityQuery = `
INSERT INTO identities (id,
                        name,
                        email,
                        password_hash,
                        role,
                        created_at,
                        updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertIdentityQuery,
		identity.ID,
		identity.Name,
		identity.Email,
		identity.PasswordHash,
		identity.Role,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailTaken
		}

		r.logger.Error().
			Err(err).
			Str("email", identity.Email).
			Msg("failed to insert identity")
		return err
	}
	r.logger.Debug().
		Str("identity_id", identity.ID).
		Msg("inserted identity")
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, identity *models.Identity) error {
	const updateIdentityQuery = `
UPDATE identities
SET name = $1,
    email = $2,
    password_hash = $3,
    role = $4,
    updated_at = $5
WHERE id = $6
`
	tag, err := r.pgPool.Exec(
		ctx,
		updateIdentityQuery,
		identity.Name,
		identity.Email,
		identity.PasswordHash,
		identity.Role,
		identity.UpdatedAt,
		identity.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailTaken
		}

		r.logger.Error().
			Err(err).
			Str("identity_id", identity.ID).
			Msg("failed to update identity")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	const selectIdentityQuery = `
SELECT id, name, email, password_hash, role, created_at, updated_at
FROM identities
WHERE id = $1
`
	return r.selectOne(ctx, selectIdentityQuery, id)
}

func (r *postgresRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	const selectIdentityByEmailQuery = `
SELECT id, name, email, password_hash, role, created_at, updated_at
FROM identities
WHERE email = $1
`
	return r.selectOne(ctx, selectIdentityByEmailQuery, email)
}

func (r *postgresRepository) selectOne(ctx context.Context, query string, arg any) (*models.Identity, error) {
	identity := new(models.Identity)
	err := r.pgPool.QueryRow(ctx, query, arg).Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Role,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.logger.Error().
			Err(err).
			Msg("failed to select identity")
		return nil, err
	}
	return identity, nil
}

func (r *postgresRepository) FindPage(ctx context.Context, offset, limit int) ([]*models.Identity, int, error) {
	const countIdentitiesQuery = `
SELECT count(*) FROM identities
`
	var total int
	err := r.pgPool.QueryRow(ctx, countIdentitiesQuery).Scan(&total)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to count identities")
		return nil, 0, err
	}

	const selectIdentitiesQuery = `
SELECT id, name, email, password_hash, role, created_at, updated_at
FROM identities
ORDER BY created_at
LIMIT $1 OFFSET $2
`
	rows, err := r.pgPool.Query(ctx, selectIdentitiesQuery, limit, offset)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to select identities")
		return nil, 0, err
	}
	defer rows.Close()

	identities := make([]*models.Identity, 0, limit)
	for rows.Next() {
		identity := new(models.Identity)
		err = rows.Scan(
			&identity.ID,
			&identity.Name,
			&identity.Email,
			&identity.PasswordHash,
			&identity.Role,
			&identity.CreatedAt,
			&identity.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan identity")
			return nil, 0, err
		}
		identities = append(identities, identity)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, 0, err
	}
	return identities, total, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	const deleteIdentityQuery = `
DELETE FROM identities
WHERE id = $1
`
	tag, err := r.pgPool.Exec(ctx, deleteIdentityQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("identity_id", id).
			Msg("failed to delete identity")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Debug().
		Str("identity_id", id).
		Msg("deleted identity")
	return nil
}
