package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zqshi/thinkcraft-auth/internal/core/port"
)

// Token use values carried in the token_use claim. Verification checks the
// claim so an access token can never pass as a refresh token or vice versa.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenClaims is the JWT claim set for both token types.
type TokenClaims struct {
	jwt.RegisteredClaims
	Phone    string `json:"phone,omitempty"`
	TokenUse string `json:"token_use"`
}

// TokenService mints and verifies HS256 access and refresh tokens with
// distinct signing secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	now           func() time.Time
}

var _ port.TokenService = (*TokenService)(nil)

// TokenConfig carries the signing material and token lifetimes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// NewTokenService validates the config and builds a token service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("token secrets must be configured")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("issuer and audience must be configured")
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		now:           time.Now,
	}, nil
}

// WithClock overrides the time source for tests.
func (s *TokenService) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// IssuePair mints a fresh access/refresh token pair for the account.
func (s *TokenService) IssuePair(accountID, phone string) (*port.TokenPair, error) {
	access, err := s.sign(accountID, phone, TokenUseAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(accountID, phone, TokenUseRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &port.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  s.accessTTL,
		RefreshExpiresIn: s.refreshTTL,
	}, nil
}

// VerifyAccessToken parses and validates an access token.
func (s *TokenService) VerifyAccessToken(token string) (*port.TokenClaims, error) {
	return s.verify(token, TokenUseAccess, s.accessSecret)
}

// VerifyRefreshToken parses and validates a refresh token.
func (s *TokenService) VerifyRefreshToken(token string) (*port.TokenClaims, error) {
	return s.verify(token, TokenUseRefresh, s.refreshSecret)
}

func (s *TokenService) sign(accountID, phone, use string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Phone:    phone,
		TokenUse: use,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) verify(token, use string, secret []byte) (*port.TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.TokenUse != use || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &port.TokenClaims{
		AccountID: claims.Subject,
		Phone:     claims.Phone,
		TokenID:   claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// ExtractBearerToken pulls the token out of an Authorization header.
// It reports false for anything that is not exactly "Bearer <token>".
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}
