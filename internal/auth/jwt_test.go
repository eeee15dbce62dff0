package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 24)
	userID := uuid.New()

	token, err := svc.Generate(userID, "alice@example.com", models.RoleOrganizer)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.Role != string(models.RoleOrganizer) {
		t.Fatalf("role = %q", claims.Role)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 24).Generate(uuid.New(), "a@b.c", models.RoleMember)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err = NewJWTService("secret-b", 24).Validate(token)
	if apperr.KindOf(err) != apperr.KindInvalidCredential {
		t.Fatalf("got %v, want invalid credential", err)
	}
}

func TestJWTExpired(t *testing.T) {
	token, err := NewJWTService("test-secret", -1).Generate(uuid.New(), "a@b.c", models.RoleMember)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err = NewJWTService("test-secret", 24).Validate(token)
	if apperr.KindOf(err) != apperr.KindInvalidCredential {
		t.Fatalf("got %v, want invalid credential", err)
	}
}

func TestJWTGarbage(t *testing.T) {
	_, err := NewJWTService("test-secret", 24).Validate("not-a-token")
	if apperr.KindOf(err) != apperr.KindInvalidCredential {
		t.Fatalf("got %v, want invalid credential", err)
	}
}
