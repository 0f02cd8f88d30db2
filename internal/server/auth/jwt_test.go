package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndVerify_Success(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("super-secret"), "gophauth")

	tok, err := s.GenerateToken("user-123", []string{"Users"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != "user-123" || claims.Subject != "user-123" {
		t.Fatalf("subject mismatch: %+v", claims)
	}
	if !claims.HasRole("Users") || claims.HasRole("Administrators") {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestGenerate_UniqueJTI(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), "")
	a, _ := s.GenerateToken("u", nil, time.Minute)
	b, _ := s.GenerateToken("u", nil, time.Minute)
	if a == b {
		t.Fatalf("two tokens issued in the same second must differ")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("secret"), "gophauth")

	tok, err := s.GenerateToken("u1", nil, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = s.Verify(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestVerify_ExpiresWithClock(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s := NewSigner([]byte("secret"), "gophauth").WithClock(func() time.Time { return now })

	tok, err := s.GenerateToken("u1", nil, 5*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	now = base.Add(4 * time.Minute)
	if _, err := s.Verify(tok); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	now = base.Add(6 * time.Minute)
	if _, err := s.Verify(tok); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewSigner([]byte("right-secret"), "").GenerateToken("u2", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = NewSigner([]byte("wrong-secret"), "").Verify(tok)
	if !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, _ := NewSigner(secret, "other").GenerateToken("u", nil, time.Hour)

	if _, err := NewSigner(secret, "gophauth").Verify(tok); err == nil {
		t.Fatalf("expected issuer mismatch to fail")
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u",
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewSigner(secret, "").Verify(hs512); !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("HS512 must be rejected, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := NewSigner(secret, "").Verify(none); err == nil {
		t.Fatalf("alg=none must be rejected")
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewSigner([]byte("k"), "").Verify("not.a.jwt")
	if !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestGetUserIDFromToken(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), "")
	tok, _ := s.GenerateToken("u-42", nil, time.Minute)

	id, err := s.GetUserIDFromToken(tok)
	if err != nil || id != "u-42" {
		t.Fatalf("got %q, %v", id, err)
	}
}
