package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"

	refreshCookieName = "refresh_token"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Secret key to sign user access token payload
	// Required to be set
	SecretKey string

	// Hasher to use during registration or login
	// Default bcrypt hasher is used if not set
	Hasher PasswordHasher

	// Access and refresh token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type AuthService struct {
	token  TokenManager
	hasher PasswordHasher

	// Repository to access long term data
	userRepo repository.UserRepo
}

func NewService(cfg Config, userRepo repository.UserRepo, refreshRepo repository.RefreshTokenRepo) (*AuthService, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if userRepo == nil || refreshRepo == nil {
		return nil, errors.New("repos must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTokenTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTokenTTL, defaultRefreshTokenTTL)

	return &AuthService{
		token: TokenManager{
			key:         cfg.SecretKey,
			alg:         jwt.GetSigningMethod(defaultSigningMethod),
			accessTTL:   cfg.AccessTokenTTL,
			refreshTTL:  cfg.RefreshTokenTTL,
			refreshRepo: refreshRepo,
		},
		hasher:   hasher,
		userRepo: userRepo,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, email string, password string, ltcAddress *string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, hash, ltcAddress)
	if err != nil {
		return user, pair, err
	}

	pair, err = s.token.GeneratePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return user, pair, apperrors.ErrUserNotFound
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, pair, apperrors.ErrUserNotFound
	}

	if user.IsBlocked {
		return user, pair, apperrors.ErrUserBlocked
	}

	pair, err = s.token.GeneratePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	token, err := s.token.UseRefresh(ctx, refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.userRepo.GetUserByID(ctx, token.UserID, false)
	if err != nil {
		return pair, err
	}

	if user.IsBlocked {
		return pair, apperrors.ErrUserBlocked
	}

	return s.token.GeneratePair(ctx, user)
}

// Authenticate request: bearer access token first, auth cookie as fallback
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	access := ""

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		access = strings.TrimPrefix(header, "Bearer ")
	}
	if access == "" {
		if cookie, err := r.Cookie("access_token"); err == nil {
			access = cookie.Value
		}
	}
	if access == "" {
		return models.User{}, errors.New("no access token in request")
	}

	userID, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID, false)
	if err != nil {
		return user, err
	}

	if user.IsBlocked {
		return user, apperrors.ErrUserBlocked
	}

	return user, nil
}

// Set token pair to response: access as httpOnly cookie, refresh the same
// The access token is returned in the body as well so API clients may use headers
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    pair.Access.Value,
		Expires:  pair.Access.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.Refresh.Value,
		Expires:  pair.Refresh.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get refresh token string from request cookie or body-less header
func (s *AuthService) GetRefresh(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if header := r.Header.Get("X-Refresh-Token"); header != "" {
		return header, nil
	}

	return "", fmt.Errorf("get refresh token: %w", apperrors.ErrRefreshTokenNotFound)
}
