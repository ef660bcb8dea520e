package services

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/models"
	"github.com/jpvillegas/taskmesh/internal/repository/identity"
)

const (
	maxNameLength     = 100
	minPasswordLength = 6

	defaultPage  = 1
	defaultLimit = 10
)

type identityServiceImpl struct {
	logger zerolog.Logger
	repo   identity.Repository
}

func NewIdentityService(logger zerolog.Logger, repo identity.Repository) IdentityService {
	return &identityServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *identityServiceImpl) Register(ctx context.Context, params RegisterParams) (*models.Identity, error) {
	if params.Name == "" || len(params.Name) > maxNameLength {
		return nil, ErrNameRequired
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(params.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	passwordHash, err := argon2id.CreateHash(params.Password, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}

	identityUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate identity uuid")
		return nil, err
	}

	now := time.Now()
	id := &models.Identity{
		ID:           identityUUID.String(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.Save(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			s.logger.Error().
				Str("email", params.Email).
				Msg("email already registered")
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info().
		Str("identity_id", id.ID).
		Msg("registered identity")
	return id, nil
}

func (s *identityServiceImpl) GetIdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.findIdentity(ctx, id)
}

func (s *identityServiceImpl) ValidateCredentials(ctx context.Context, email, password string) (*models.Identity, error) {
	found, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.logger.Error().
				Str("email", email).
				Msg("identity not found by email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := argon2id.ComparePasswordAndHash(password, found.PasswordHash)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	}
	if !match {
		s.logger.Error().
			Str("identity_id", found.ID).
			Msg("password mismatch")
		return nil, ErrInvalidCredentials
	}

	return found, nil
}

func (s *identityServiceImpl) UpdateIdentity(ctx context.Context, params UpdateIdentityParams) (*models.Identity, error) {
	found, err := s.findIdentity(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		if *params.Name == "" || len(*params.Name) > maxNameLength {
			return nil, ErrNameRequired
		}
		found.Name = *params.Name
	}
	if params.Email != nil {
		if _, err := mail.ParseAddress(*params.Email); err != nil {
			return nil, ErrInvalidEmail
		}
		found.Email = *params.Email
	}
	if params.Password != nil {
		if len(*params.Password) < minPasswordLength {
			return nil, ErrWeakPassword
		}
		passwordHash, err := argon2id.CreateHash(*params.Password, argon2id.DefaultParams)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to hash password")
			return nil, err
		}
		found.PasswordHash = passwordHash
	}
	found.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, found)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info().
		Str("identity_id", found.ID).
		Msg("updated identity")
	return found, nil
}

func (s *identityServiceImpl) UpdateIdentityRole(ctx context.Context, id, role string) (*models.Identity, error) {
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}

	found, err := s.findIdentity(ctx, id)
	if err != nil {
		return nil, err
	}

	found.Role = role
	found.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, found)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("identity_id", found.ID).
		Str("role", role).
		Msg("updated identity role")
	return found, nil
}

func (s *identityServiceImpl) DeleteIdentity(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}

	// Tasks keep their dangling assignee reference; the task service
	// degrades those at read time.
	s.logger.Info().
		Str("identity_id", id).
		Msg("deleted identity")
	return nil
}

func (s *identityServiceImpl) ListIdentities(ctx context.Context, page, limit int) (*IdentityPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	identities, total, err := s.repo.FindPage(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	return &IdentityPage{
		Identities: identities,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *identityServiceImpl) findIdentity(ctx context.Context, id string) (*models.Identity, error) {
	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.logger.Error().
				Str("identity_id", id).
				Msg("identity not found")
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return found, nil
}
