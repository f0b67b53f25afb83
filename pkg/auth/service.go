package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthService validates platform tokens on inbound requests.
type AuthService interface {
	// ValidateRequest extracts and validates the bearer token from the
	// request. Returns the parsed claims and the raw token string.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// ValidateToken validates a raw token string. Used by the dispatcher,
	// which accepts tokens via query parameter as well as header.
	ValidateToken(tokenString string) (*Claims, error)

	// RequireOrgID returns an error if the claims carry no organization.
	RequireOrgID(claims *Claims) error
}

type authService struct {
	secret             []byte
	issuer             string
	enableVerification bool
	logger             *zap.Logger
}

// NewAuthService creates an AuthService that validates HMAC-signed platform
// tokens. When enableVerification is false (local development), tokens are
// parsed without signature validation.
func NewAuthService(secret, issuer string, enableVerification bool, logger *zap.Logger) AuthService {
	return &authService{
		secret:             []byte(secret),
		issuer:             issuer,
		enableVerification: enableVerification,
		logger:             logger,
	}
}

// ValidateRequest extracts the bearer token from the Authorization header
// and validates it.
func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, "", fmt.Errorf("missing Authorization header")
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, "", fmt.Errorf("Authorization header is not a bearer token")
	}

	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, "", err
	}
	return claims, tokenString, nil
}

// ValidateToken parses and validates a raw JWT string.
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if !s.enableVerification {
		// Local development: accept the token without signature checks.
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// RequireOrgID returns an error if the claims carry no organization ID.
func (s *authService) RequireOrgID(claims *Claims) error {
	if claims.OrganizationID == "" {
		return fmt.Errorf("missing organization ID in token")
	}
	return nil
}

// Ensure authService implements AuthService at compile time.
var _ AuthService = (*authService)(nil)
