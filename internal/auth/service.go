// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelamos/gatherly/internal/core"
	"github.com/angelamos/gatherly/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

// UserInfo is the slice of a user account the auth flows need. The
// user package implements UserProvider so auth never imports it.
type UserInfo struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Role          string
	Status        string
	EmailVerified bool
	TokenVersion  int
	CreatedAt     time.Time
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, params CreateUserParams) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	RecordLogin(ctx context.Context, userID string) error
}

type Service struct {
	repo         Repository
	jwt          *JWTManager
	userProvider UserProvider
	redis        *redis.Client
	logger       *slog.Logger
	blacklistTTL time.Duration
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	userProvider UserProvider,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		jwt:          jwt,
		userProvider: userProvider,
		redis:        redisClient,
		logger:       logger,
		blacklistTTL: jwt.AccessTokenTTL(),
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	exists, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists != nil {
		return nil, ErrEmailExists
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, CreateUserParams{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "")
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if user.Status != "active" {
		return nil, core.ErrAccountInactive
	}

	if err := s.userProvider.RecordLogin(ctx, user.ID); err != nil {
		s.logger.Warn("record login failed",
			"user_id", user.ID,
			"error", err,
		)
	}

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "")
}

// Refresh rotates a refresh token. The stored token is consumed with a
// guarded update before any new credentials are issued, so a concurrent
// rotation off the same token loses the race and is treated as reuse.
// Reuse revokes the whole family: an attacker replaying a stolen token
// after the legitimate client rotated it kills every descendant too.
func (s *Service) Refresh(
	ctx context.Context,
	rawToken string,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(rawToken)

	stored, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if stored.IsRevoked() {
		return nil, core.ErrTokenRevoked
	}

	if stored.IsUsed {
		s.logger.Error("refresh token reuse detected",
			"user_id", stored.UserID,
			"family_id", stored.FamilyID,
			"token_id", stored.ID,
			"ip_address", ipAddress,
		)
		if err := s.repo.RevokeByFamilyID(ctx, stored.FamilyID); err != nil {
			s.logger.Error("revoke token family failed",
				"family_id", stored.FamilyID,
				"error", err,
			)
		}
		return nil, ErrTokenReuse
	}

	if stored.IsExpired() {
		return nil, core.ErrTokenExpired
	}

	user, err := s.userProvider.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.Status != "active" {
		return nil, core.ErrAccountInactive
	}

	resp, successor, err := s.mintTokenPair(
		user, userAgent, ipAddress, stored.FamilyID, uuid.New().String(),
	)
	if err != nil {
		return nil, err
	}

	// Consume and store in one transaction. If the guarded update finds
	// no row the token was rotated out from under us between the read
	// above and now, which is indistinguishable from replay.
	if err := s.repo.Rotate(ctx, stored.ID, successor); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.Error("refresh token reuse detected",
				"user_id", stored.UserID,
				"family_id", stored.FamilyID,
				"token_id", stored.ID,
				"ip_address", ipAddress,
			)
			if err := s.repo.RevokeByFamilyID(ctx, stored.FamilyID); err != nil {
				s.logger.Error("revoke token family failed",
					"family_id", stored.FamilyID,
					"error", err,
				)
			}
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("rotate token: %w", err)
	}

	return resp, nil
}

// Logout revokes the presented refresh token. Unknown or already
// revoked tokens succeed: the caller's goal state is "token unusable"
// and it already is.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	tokenHash := core.HashToken(rawToken)

	stored, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if err := s.repo.RevokeByID(ctx, stored.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

// LogoutAll revokes every refresh token for the user and bumps their
// token version so outstanding access tokens fail verification.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.userProvider.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordTimingSafe(
		req.CurrentPassword,
		&user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// Every existing session dies with the old password.
	return s.LogoutAll(ctx, userID)
}

func (s *Service) GetSessions(
	ctx context.Context,
	userID string,
) (*SessionsResponse, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return &SessionsResponse{Sessions: sessions}, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	stored, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if stored.UserID != userID {
		return core.ErrForbidden
	}

	return s.repo.RevokeByID(ctx, stored.ID)
}

// RevokeAccessToken blacklists an access token's jti in redis for the
// remainder of its lifetime.
func (s *Service) RevokeAccessToken(ctx context.Context, jti string) error {
	if s.redis == nil {
		return nil
	}

	key := "blacklist:jti:" + jti
	if err := s.redis.Set(ctx, key, "1", s.blacklistTTL).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	if s.redis == nil {
		return false, nil
	}

	key := "blacklist:jti:" + jti
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return n > 0, nil
}

// RevokePresentedAccessToken blacklists the bearer token accompanying a
// logout so it dies with the session instead of riding out its TTL.
// Best effort: an expired or garbled token has nothing left to revoke.
func (s *Service) RevokePresentedAccessToken(
	ctx context.Context,
	rawToken string,
) {
	claims, err := s.jwt.VerifyAccessToken(ctx, rawToken)
	if err != nil || claims.JTI == "" {
		return
	}

	if err := s.RevokeAccessToken(ctx, claims.JTI); err != nil {
		s.logger.Warn("access token blacklist failed",
			"jti", claims.JTI,
			"error", err,
		)
	}
}

// ValidateClaims is the per-request revocation check behind the
// authenticator middleware. Signature validity is necessary but not
// sufficient: the jti must be off the blacklist and the token version
// must still match the user's.
func (s *Service) ValidateClaims(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
) error {
	blacklisted, err := s.IsAccessTokenBlacklisted(ctx, claims.JTI)
	if err != nil {
		return err
	}
	if blacklisted {
		return core.ErrTokenRevoked
	}

	return s.ValidateTokenVersion(ctx, claims.UserID, claims.TokenVersion)
}

// ValidateTokenVersion rejects access tokens minted before the user's
// last global logout or suspension.
func (s *Service) ValidateTokenVersion(
	ctx context.Context,
	userID string,
	tokenVersion int,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user.TokenVersion != tokenVersion {
		return core.ErrTokenRevoked
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          user.Role,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}, nil
}

func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
) (*AuthResponse, error) {
	resp, token, err := s.mintTokenPair(
		user, userAgent, ipAddress, familyID, uuid.New().String(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return resp, nil
}

// mintTokenPair builds the access/refresh pair and the storable refresh
// record without persisting anything. Callers decide whether the record
// goes in via Create (login, register) or Rotate (refresh).
func (s *Service) mintTokenPair(
	user *UserInfo,
	userAgent, ipAddress, familyID, tokenID string,
) (*AuthResponse, *RefreshToken, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(user.ID, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("create refresh token: %w", err)
	}

	token := &RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	return &AuthResponse{
		User: UserResponse{
			ID:            user.ID,
			Email:         user.Email,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Role:          user.Role,
			Status:        user.Status,
			EmailVerified: user.EmailVerified,
			CreatedAt:     user.CreatedAt,
		},
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(s.jwt.AccessTokenTTL().Seconds()),
			ExpiresAt:    time.Now().Add(s.jwt.AccessTokenTTL()),
		},
	}, token, nil
}
