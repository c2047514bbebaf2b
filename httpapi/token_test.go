package httpapi_test

import (
	"testing"
	"time"

	"github.com/spidervirus/FutureSelf/httpapi"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := httpapi.NewAccessToken("user-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	userID, err := httpapi.ParseAccessToken(token, "secret")
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Expected user id user-1, got: %s", userID)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := httpapi.NewAccessToken("user-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	if _, err = httpapi.ParseAccessToken(token, "other"); err == nil {
		t.Error("Expected an error for a token signed with another secret")
	}
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := httpapi.NewAccessToken("user-1", "secret", -time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	if _, err = httpapi.ParseAccessToken(token, "secret"); err == nil {
		t.Error("Expected an error for an expired token")
	}
}

func TestAccessTokenMalformed(t *testing.T) {
	if _, err := httpapi.ParseAccessToken("not-a-token", "secret"); err == nil {
		t.Error("Expected an error for a malformed token")
	}
}
