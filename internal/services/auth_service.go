package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/auth"
	"github.com/jpvillegas/taskmesh/internal/identityclient"
)

// loginAttempts bounds the sequential validation attempts: the first
// call plus two retries, transport failures only.
const loginAttempts = 3

type authServiceImpl struct {
	logger    zerolog.Logger
	validator CredentialValidator
	minter    auth.Minter
}

func NewAuthService(
	logger zerolog.Logger,
	validator CredentialValidator,
	minter auth.Minter,
) AuthService {
	return &authServiceImpl{
		logger:    logger,
		validator: validator,
		minter:    minter,
	}
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	var identity *identityclient.PublicIdentity
	var err error
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		identity, err = s.validator.ValidateCredentials(ctx, params.Email, params.Password)
		if err == nil || !identityclient.IsTransport(err) {
			break
		}
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("credential validation attempt failed")
	}
	if err != nil {
		if identityclient.IsTransport(err) {
			s.logger.Error().
				Err(err).
				Msg("identity service unreachable")
			return nil, err
		}

		s.logger.Error().
			Str("email", params.Email).
			Msg("credentials rejected")
		return nil, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := s.minter.Mint(identity.ID, identity.Email, identity.Role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to mint access token")
		return nil, err
	}

	s.logger.Info().
		Str("identity_id", identity.ID).
		Msg("logged in")
	return &LoginResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
	}, nil
}
