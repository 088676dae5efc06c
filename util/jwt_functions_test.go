package util

import (
	"strings"
	"testing"
	"time"

	"github.com/petroxhq/petrox_backend/models"
)

func TestJwtRoundTrip(t *testing.T) {
	JWTSecret = "test-secret"

	user := models.User{ID: 7, Username: "ada", Role: "student"}
	token, err := JwtGenerate(user, "7")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims["username"] != "ada" || claims["role"] != "student" || claims["id"] != "7" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestParseJWTBearerPrefix(t *testing.T) {
	JWTSecret = "test-secret"

	token, err := JwtGenerate(models.User{ID: 1, Username: "bob"}, "1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("Bearer " + token); err != nil {
		t.Fatalf("bearer-prefixed token rejected: %v", err)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	JWTSecret = "test-secret"
	token, err := JwtGenerate(models.User{ID: 1, Username: "bob"}, "1")
	if err != nil {
		t.Fatal(err)
	}

	JWTSecret = "different-secret"
	if _, err := ParseJWT(token); err == nil {
		t.Fatal("token signed with a different secret should be rejected")
	}
}

func TestIsTokenValidAfterPasswordChange(t *testing.T) {
	JWTSecret = "test-secret"

	user := models.User{ID: 3, Username: "eve"}
	token, err := JwtGenerate(user, "3")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatal(err)
	}

	user.PasswordChangedAt = time.Now().Add(-time.Hour)
	if err := IsTokenValid(claims, user); err != nil {
		t.Fatalf("token issued after password change should be valid: %v", err)
	}

	user.PasswordChangedAt = time.Now().Add(time.Hour)
	err = IsTokenValid(claims, user)
	if err == nil {
		t.Fatal("token issued before password change should be invalid")
	}
	if !strings.Contains(err.Error(), "password") {
		t.Fatalf("unexpected error: %v", err)
	}
}
