package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rvashist/interview-tree-backend/internal/repos/testutil"
)

func signToken(t *testing.T, secret string, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyTokenExtractsSubject(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "topsecret")

	token := signToken(t, "topsecret", "user_2abc", time.Now().Add(time.Hour))
	userID, err := svc.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user_2abc" {
		t.Fatalf("userID = %q, want user_2abc", userID)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "topsecret")

	cases := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong_secret", token: signToken(t, "othersecret", "user_1", time.Now().Add(time.Hour))},
		{name: "expired", token: signToken(t, "topsecret", "user_1", time.Now().Add(-time.Hour))},
		{name: "no_subject", token: signToken(t, "topsecret", "", time.Now().Add(time.Hour))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.VerifyToken(context.Background(), tc.token)
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}
