package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/config"
	"github.com/faultdesk/incident-service-api/internal/domain/user"
	"github.com/faultdesk/incident-service-api/internal/ierr"
	"github.com/faultdesk/incident-service-api/internal/storage/memstorage"
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo user.Repository
	config   *config.JWTConfig
	logger   *zap.Logger
}

func NewAuthService(userRepo user.Repository, cfg *config.JWTConfig, logger *zap.Logger) (*AuthService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}

	return &AuthService{
		userRepo: userRepo,
		config:   cfg,
		logger:   logger.Named("AuthService"),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Debug("Login failed: user lookup", zap.String("username", username), zap.Error(err))
		return "", ierr.ErrInvalidCredentials
	}

	if !memstorage.CheckPassword(u.PasswordHash, password) {
		s.logger.Debug("Login failed: password mismatch", zap.String("username", username))
		return "", ierr.ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", fmt.Errorf("%w: token signing failed: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Access token issued", zap.String("username", u.Username), zap.String("role", u.Role))
	return signed, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, rawToken string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(rawToken, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		s.logger.Warn("Failed to verify access token", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		s.logger.Error("Token parsed but claims have unexpected type")
		return nil, ierr.ErrTokenInvalidClaims
	}

	s.logger.Debug("Access token validated", zap.String("subject", claims.Subject), zap.String("username", claims.Username))
	return claims, nil
}
