package port

import "time"

// TokenClaims is the verified identity carried by an issued token.
type TokenClaims struct {
	AccountID string
	Phone     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenPair is an access/refresh token pair minted for one account.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

// TokenService mints and verifies the two token types. Access and refresh
// tokens are signed with distinct secrets; verifying a token of one type
// with the other type's verifier must fail.
type TokenService interface {
	IssuePair(accountID, phone string) (*TokenPair, error)
	VerifyAccessToken(token string) (*TokenClaims, error)
	VerifyRefreshToken(token string) (*TokenClaims, error)
}
