package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
)

// AuthService guards the admin surface with HS256 bearer tokens. There is no
// login endpoint; operators mint tokens out of band via GenerateToken.
type AuthService struct {
	cfg    *config.AuthConfig
	logger *logrus.Logger
	secret []byte
}

func NewAuthService(cfg *config.AuthConfig, logger *logrus.Logger) *AuthService {
	return &AuthService{
		cfg:    cfg,
		logger: logger,
		secret: []byte(cfg.JWTSecret),
	}
}

// Enabled reports whether admin requests must carry a token.
func (s *AuthService) Enabled() bool {
	return s.cfg.Enabled && len(s.secret) > 0
}

// GenerateToken mints a token for the named operator.
func (s *AuthService) GenerateToken(subject string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("no JWT secret configured")
	}

	now := time.Now()
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    "mbtirec",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken checks signature and expiry and returns the claims.
func (s *AuthService) ValidateToken(tokenString string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
