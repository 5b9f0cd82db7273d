package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/versebook/versebook/internal/auth"
	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository"
	"github.com/versebook/versebook/internal/validate"
)

const refreshKeyPrefix = "refresh:"

// AuthService implements registration, login, token refresh, and password
// reset on top of the book-user collection.
type AuthService struct {
	store      repository.Store
	cache      repository.Cache
	tokens     *auth.TokenManager
	def        Definition
	bcryptCost int
	logger     zerolog.Logger
}

// NewAuthService creates the auth service. The bcrypt cost comes from
// configuration so tests can use the minimum cost.
func NewAuthService(store repository.Store, cache repository.Cache, tokens *auth.TokenManager, bcryptCost int, logger zerolog.Logger) *AuthService {
	return &AuthService{
		store:      store,
		cache:      cache,
		tokens:     tokens,
		def:        UserDefinition(),
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// LoginResult is the token pair plus the public view of the user.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.PublicUser
}

// Register creates a new active user from the payload. The password is
// hashed with bcrypt and never stored or returned in clear.
func (s *AuthService) Register(ctx context.Context, payload domain.Document) (*domain.PublicUser, error) {
	password := strings.TrimSpace(payload.String("password"))
	if password == "" {
		return nil, domain.NewValidationError("password", "is required")
	}

	doc := stripMetadata(payload)
	delete(doc, "password")
	if err := validate.Payload(doc, s.def.Rules, false); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, doc.String(domain.FieldEmail), ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := domain.Timestamp()
	doc[domain.FieldID] = uuid.NewString()
	doc[domain.FieldIsActive] = true
	doc[domain.FieldCreatedAt] = now
	doc[domain.FieldUpdatedAt] = now
	doc[domain.FieldCreatedBy] = domain.SelfActor.ID
	doc[domain.FieldUpdatedBy] = domain.SelfActor.ID
	doc[domain.FieldPasswordHash] = string(hash)

	if err := s.store.Insert(ctx, s.def.Collection, doc); err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", doc.ID()).Msg("user registered")
	return domain.PublicUserFromDocument(doc), nil
}

// Login verifies the credentials against the active user with that email
// and issues an access/refresh token pair. The refresh token is recorded
// in the cache allow-list so Refresh can verify it was issued here.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if password == "" {
		return nil, domain.NewValidationError("password", "is required")
	}

	user, err := s.store.FindOne(ctx, s.def.Collection, domain.FieldEmail, email, true, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.String(domain.FieldPasswordHash)), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", user.ID()).Msg("user logged in")
	return result, nil
}

// Refresh validates a refresh token against the allow-list and rotates the
// token pair. The old refresh token is superseded by the new one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := s.cache.Get(ctx, refreshKeyPrefix+claims.Subject)
	if err != nil || string(stored) != refreshToken {
		return nil, fmt.Errorf("%w: refresh token not recognized", domain.ErrUnauthorized)
	}

	user, err := s.store.Get(ctx, s.def.Collection, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
	}
	if !user.IsActive() {
		return nil, fmt.Errorf("%w: user is inactive", domain.ErrUnauthorized)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", user.ID()).Msg("token pair refreshed")
	return result, nil
}

// ResetPassword replaces the password of the active user with that email.
// The caller does not have to be authenticated.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidationError("email", "is required")
	}
	if strings.TrimSpace(newPassword) == "" {
		return domain.NewValidationError("newPassword", "is required")
	}

	user, err := s.store.FindOne(ctx, s.def.Collection, domain.FieldEmail, email, true, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: user not found", domain.ErrNotFound)
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	set := domain.Document{
		domain.FieldPasswordHash: string(hash),
		domain.FieldUpdatedAt:    domain.Timestamp(),
		domain.FieldUpdatedBy:    domain.SelfActor.ID,
	}
	if err := s.store.Apply(ctx, s.def.Collection, user.ID(), set); err != nil {
		return err
	}
	s.invalidateRecord(ctx, user.ID())

	s.logger.Info().Str("id", user.ID()).Msg("password reset")
	return nil
}

// invalidateRecord drops the read-through cache entry the lifecycle
// service keeps for the user collection, so a reset is visible
// immediately and the superseded hash does not linger in cache.
func (s *AuthService) invalidateRecord(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, recordCacheKey(s.def.Collection, id)); err != nil {
		s.logger.Debug().Err(err).Str("id", id).Msg("cache invalidation failed")
	}
}

func (s *AuthService) issueTokens(ctx context.Context, user domain.Document) (*LoginResult, error) {
	access, err := s.tokens.IssueAccessToken(user.ID())
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID())
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, refreshKeyPrefix+user.ID(), []byte(refresh), s.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("failed to record refresh token: %w", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         domain.PublicUserFromDocument(user),
	}, nil
}

func (s *AuthService) checkEmailFree(ctx context.Context, email, excludeID string) error {
	_, err := s.store.FindOne(ctx, s.def.Collection, domain.FieldEmail, email, true, excludeID)
	if err == nil {
		return fmt.Errorf("%w: book-user with this email already exists", domain.ErrConflict)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
