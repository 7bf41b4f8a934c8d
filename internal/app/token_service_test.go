package app

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", "fillblank", time.Hour)
	tokenString, err := svc.Issue("user123", "ABCD", "Alice")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}

	claims, err := svc.Parse(tokenString)
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	if claims.Subject != "user123" {
		t.Fatalf("sub = %s, want user123", claims.Subject)
	}
	if claims.Lobby != "ABCD" {
		t.Fatalf("lby = %s, want ABCD", claims.Lobby)
	}
	if claims.Name != "Alice" {
		t.Fatalf("nam = %s, want Alice", claims.Name)
	}
}

func TestTokenServiceClaimsAreHS256MapClaims(t *testing.T) {
	secret := "test-secret"
	svc := NewTokenService(secret, "fillblank", time.Hour)
	tokenString, err := svc.Issue("user123", "ABCD", "")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	if got, _ := claims["iss"].(string); got != "fillblank" {
		t.Fatalf("iss = %s, want fillblank", got)
	}
	if _, ok := claims["nam"]; ok {
		t.Fatal("empty name should be omitted")
	}
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService("test-secret", "fillblank", time.Hour)
	valid, err := svc.Issue("user123", "ABCD", "")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}

	expiredSvc := NewTokenService("test-secret", "fillblank", time.Hour)
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredSvc.Issue("user123", "ABCD", "")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}

	tests := []struct {
		name  string
		svc   *TokenService
		token string
	}{
		{name: "wrong secret", svc: NewTokenService("other", "fillblank", time.Hour), token: valid},
		{name: "wrong issuer", svc: NewTokenService("test-secret", "someone-else", time.Hour), token: valid},
		{name: "expired", svc: svc, token: expired},
		{name: "garbage", svc: svc, token: "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Parse error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenServiceRequiresConfig(t *testing.T) {
	if _, err := NewTokenService("", "fillblank", time.Hour).Issue("user", "ABCD", ""); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewTokenService("secret", "fillblank", time.Hour).Issue("", "ABCD", ""); err == nil {
		t.Fatal("expected error for missing user")
	}
}
