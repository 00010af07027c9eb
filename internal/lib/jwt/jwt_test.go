package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/models"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewToken(models.Operator{Email: "ops@example.com", Role: "operator"}, time.Hour, "secret")
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	op, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if op.Email != "ops@example.com" || op.Role != "operator" {
		t.Errorf("unexpected operator %+v", op)
	}
}

func TestParseTokenRejects(t *testing.T) {
	valid, _ := NewToken(models.Operator{Email: "ops@example.com"}, time.Hour, "secret")
	expired, _ := NewToken(models.Operator{Email: "ops@example.com"}, -time.Hour, "secret")

	cases := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, "secret"},
		{"garbage", "not-a-token", "secret"},
	}

	for _, tc := range cases {
		if _, err := ParseToken(tc.token, tc.secret); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", tc.name, err)
		}
	}
}
