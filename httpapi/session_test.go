package httpapi_test

import (
	"testing"
	"time"

	"github.com/spidervirus/FutureSelf/httpapi"
)

func TestMemorySessionStore(t *testing.T) {
	s := httpapi.NewMemorySessionStore(time.Hour)

	id, err := s.Create("user-1")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a session id")
	}

	sess, err := s.Check(id)
	if err != nil {
		t.Fatalf("Failed to check session: %v", err)
	}
	if sess == nil {
		t.Fatal("Expected a session")
	}
	if sess.UserID != "user-1" {
		t.Errorf("Expected user id user-1, got: %s", sess.UserID)
	}

	sess, err = s.Check("bogus")
	if err != nil {
		t.Fatalf("Failed to check session: %v", err)
	}
	if sess != nil {
		t.Error("Expected no session for an unknown id")
	}

	id2, err := s.Create("user-2")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if id == id2 {
		t.Error("Expected distinct session ids")
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	s := httpapi.NewMemorySessionStore(200 * time.Millisecond)

	id, err := s.Create("user-1")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// each check slides the expiration forward, so two checks spaced inside
	// the window keep the session alive past its original expiry
	for i := 0; i < 2; i++ {
		time.Sleep(120 * time.Millisecond)
		sess, err := s.Check(id)
		if err != nil {
			t.Fatalf("Failed to check session: %v", err)
		}
		if sess == nil {
			t.Fatalf("Expected session to stay alive on check %d", i+1)
		}
	}

	time.Sleep(250 * time.Millisecond)
	sess, err := s.Check(id)
	if err != nil {
		t.Fatalf("Failed to check session: %v", err)
	}
	if sess != nil {
		t.Error("Expected session to expire")
	}
}
