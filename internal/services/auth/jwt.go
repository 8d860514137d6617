package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccountIDClaim carries the caller's account id in issued tokens.
const AccountIDClaim = "account_id"

const defaultTokenTTL = 7 * 24 * time.Hour

type JWTService struct {
	secretKey []byte
	now       func() time.Time
}

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

// GenerateToken signs an HS256 token for accountID. ttl <= 0 uses a week.
func (s *JWTService) GenerateToken(accountID string, ttl time.Duration) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := s.now()
	claims := jwt.MapClaims{
		AccountIDClaim: accountID,
		"sub":          accountID,
		"exp":          now.Add(ttl).Unix(),
		"iat":          now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseAccountID validates tokenString and returns its account id.
func (s *JWTService) ParseAccountID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	accountID, _ := claims[AccountIDClaim].(string)
	if accountID == "" {
		return "", fmt.Errorf("token has no %s claim", AccountIDClaim)
	}
	return accountID, nil
}
