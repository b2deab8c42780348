package auth

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssueValidate(t *testing.T) {
	ts := NewTokenService("test_secret", time.Hour)

	token, err := ts.Issue(42)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	uid, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if uid != 42 {
		t.Errorf("expected user ID 42, got %d", uid)
	}
}

func TestTokenIssueUnique(t *testing.T) {
	ts := NewTokenService("test_secret", time.Hour)

	// jti 不同，同一用户两次签发的令牌不相同
	a, _ := ts.Issue(1)
	b, _ := ts.Issue(1)
	if a == b {
		t.Error("expected distinct tokens for repeated Issue")
	}
}

func TestTokenValidateWrongSecret(t *testing.T) {
	ts := NewTokenService("secret_a", time.Hour)
	other := NewTokenService("secret_b", time.Hour)

	token, err := ts.Issue(1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := other.Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenValidateExpired(t *testing.T) {
	ts := NewTokenService("test_secret", time.Hour)

	// 手工构造一个已过期的令牌
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(7, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	if _, err := ts.Validate(expired); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenValidateGarbage(t *testing.T) {
	ts := NewTokenService("test_secret", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.Validate(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("token %q: expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestTokenValidateWrongSigningMethod(t *testing.T) {
	ts := NewTokenService("test_secret", time.Hour)

	// alg=none 的令牌必须被拒绝
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := ts.Validate(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
