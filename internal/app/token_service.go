package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

var ErrInvalidToken = errors.New("invalid player token")

// PlayerClaims identify a user in a lobby.
type PlayerClaims struct {
	Lobby string `json:"lby"`
	Name  string `json:"nam,omitempty"`
	jwt.StandardClaims
}

// TokenService issues and checks the signed tokens players send with actions.
type TokenService struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for userID in lobby code.
func (s *TokenService) Issue(userID, code, name string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token service is nil")
	}
	if userID == "" || code == "" {
		return "", fmt.Errorf("user and lobby are required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("token config is incomplete")
	}

	now := s.now()
	claims := PlayerClaims{
		Lobby: code,
		Name:  name,
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
			Id:        fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Parse checks a token's signature, issuer and expiry.
func (s *TokenService) Parse(tokenString string) (*PlayerClaims, error) {
	claims := &PlayerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" || claims.Lobby == "" {
		return nil, fmt.Errorf("%w: missing subject or lobby", ErrInvalidToken)
	}
	return claims, nil
}
