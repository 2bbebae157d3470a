package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/yanqian/todoc/pkg/errors"
)

// Service inspects bearer tokens issued by the records API.
type Service interface {
	Inspect(ctx context.Context, token string) (Claims, error)
}

type service struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

const tokenTypeAccess = "access"

// NewService constructs a Service instance.
func NewService(cfg Config, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "auth.service"),
	}
}

// BearerToken strips the scheme from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}

func (s *service) Inspect(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "로그인이 필요해요.", ErrMissingToken)
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != "" && claims.TokenType != tokenTypeAccess {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token type mismatch", nil)
	}
	if claims.Subject == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token missing subject", nil)
	}
	return claims, nil
}

func (s *service) parseToken(token string) (Claims, error) {
	parsed := &tokenClaims{}
	if s.cfg.Secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, parsed); err != nil {
			return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token malformed", err)
		}
	} else {
		tok, err := jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
			}
			return []byte(s.cfg.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(s.cfg.Leeway), jwt.WithTimeFunc(s.now))
		if err != nil {
			return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token validation failed", err)
		}
		if !tok.Valid {
			return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token invalid", nil)
		}
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token missing expiry", nil)
	}
	if parsed.ExpiresAt.Time.Add(s.cfg.Leeway).Before(s.now()) {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "token expired", nil)
	}
	return Claims{
		Subject:   parsed.Subject,
		TokenType: parsed.TokenType,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
}
