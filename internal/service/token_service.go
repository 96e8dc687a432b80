package service

import (
	"fmt"
	"time"

	"creator-payout-service/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stepUpScope = "withdrawal_step_up"

// JWTTokenService implements ports.TokenService using HS256 JWT.
// It mints two kinds of tokens: long-lived access tokens for creators
// and admins, and short-lived step-up proofs bound to a single account
// by a successful OTP verification.
type JWTTokenService struct {
	secret       []byte
	accessExpiry time.Duration
	stepUpExpiry time.Duration
	issuer       string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, accessExpiry, stepUpExpiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		stepUpExpiry: stepUpExpiry,
		issuer:       issuer,
	}
}

// GenerateAccess creates a signed access token for the given subject.
func (s *JWTTokenService) GenerateAccess(subjectID uuid.UUID, role string, permissions []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessExpiry)

	claims := jwt.MapClaims{
		"sub":  subjectID.String(),
		"role": role,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}
	if len(permissions) > 0 {
		claims["perms"] = permissions
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccess parses and validates an access token, returning the claims.
func (s *JWTTokenService) ValidateAccess(tokenString string) (*ports.AccessClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}
	subjectID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in token: %w", err)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return nil, fmt.Errorf("missing role claim")
	}

	var perms []string
	if raw, ok := claims["perms"].([]interface{}); ok {
		for _, p := range raw {
			if str, ok := p.(string); ok {
				perms = append(perms, str)
			}
		}
	}

	return &ports.AccessClaims{
		SubjectID:   subjectID,
		Role:        role,
		Permissions: perms,
	}, nil
}

// GenerateStepUp mints the short-lived proof of a just-completed OTP
// verification, bound to the account it was verified for.
func (s *JWTTokenService) GenerateStepUp(accountID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.stepUpExpiry)

	claims := jwt.MapClaims{
		"sub":   accountID.String(),
		"scope": stepUpScope,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"iss":   s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing step-up token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateStepUp checks that the proof is unexpired, carries the step-up
// scope, and belongs to the given account.
func (s *JWTTokenService) ValidateStepUp(tokenString string, accountID uuid.UUID) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}

	if scope, _ := claims["scope"].(string); scope != stepUpScope {
		return fmt.Errorf("not a step-up token")
	}
	if sub, _ := claims["sub"].(string); sub != accountID.String() {
		return fmt.Errorf("step-up token issued for a different account")
	}
	return nil
}

func (s *JWTTokenService) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
