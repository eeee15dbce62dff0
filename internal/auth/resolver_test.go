package auth

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *fakeUserStore) add(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) CreateProvisioned(_ context.Context, id uuid.UUID, email, displayName string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Email: email, DisplayName: displayName, Role: role}
	s.users[id] = u
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func TestResolveLocalToken(t *testing.T) {
	store := newFakeUserStore()
	jwtSvc := NewJWTService("test-secret", 1)
	r := NewResolver(store, jwtSvc, nil, nil)

	alice := &models.User{ID: uuid.New(), Email: "alice@example.com", Role: models.RoleMember}
	store.add(alice)

	token, err := jwtSvc.Generate(alice.ID, alice.Email, alice.Role)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got, err := r.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != alice.ID {
		t.Fatalf("resolved %s, want %s", got.ID, alice.ID)
	}
}

func TestResolveLocalTokenDeletedUser(t *testing.T) {
	store := newFakeUserStore()
	jwtSvc := NewJWTService("test-secret", 1)
	r := NewResolver(store, jwtSvc, nil, nil)

	token, err := jwtSvc.Generate(uuid.New(), "ghost@example.com", models.RoleMember)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err = r.Resolve(context.Background(), token)
	if apperr.KindOf(err) != apperr.KindInvalidCredential {
		t.Fatalf("got %v, want invalid credential", err)
	}
}

func TestEnsureUserProvisions(t *testing.T) {
	store := newFakeUserStore()
	r := NewResolver(store, NewJWTService("s", 1), nil, nil)
	subject := uuid.New()

	user, err := r.EnsureUser(context.Background(), &ExternalClaims{
		Subject: subject.String(),
		Email:   "bob@example.com",
		Groups:  []string{"organizer"},
	})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if user.ID != subject {
		t.Fatalf("id = %s, want %s", user.ID, subject)
	}
	if user.Role != models.RoleOrganizer {
		t.Fatalf("role = %q, want organizer", user.Role)
	}
	if user.DisplayName != "bob" {
		t.Fatalf("display name = %q, want email local part", user.DisplayName)
	}

	// Second resolution must reuse the stored row, not provision again.
	again, err := r.EnsureUser(context.Background(), &ExternalClaims{
		Subject: subject.String(),
		Groups:  []string{"organizer"},
	})
	if err != nil {
		t.Fatalf("EnsureUser second time: %v", err)
	}
	if again.Email != "bob@example.com" {
		t.Fatalf("email lost across resolutions: %q", again.Email)
	}
}

func TestEnsureUserProvisionsWithoutEmail(t *testing.T) {
	store := newFakeUserStore()
	r := NewResolver(store, NewJWTService("s", 1), nil, nil)
	subject := uuid.New()

	user, err := r.EnsureUser(context.Background(), &ExternalClaims{
		Subject: subject.String(),
		Groups:  []string{},
	})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if user.Email != subject.String()+"@users.external" {
		t.Fatalf("email = %q, want synthesized placeholder", user.Email)
	}
	if user.Role != models.RoleMember {
		t.Fatalf("role = %q, want member for empty groups", user.Role)
	}
}

func TestEnsureUserSyncsRole(t *testing.T) {
	store := newFakeUserStore()
	r := NewResolver(store, NewJWTService("s", 1), nil, nil)

	u := &models.User{ID: uuid.New(), Email: "c@example.com", Role: models.RoleMember}
	store.add(u)

	got, err := r.EnsureUser(context.Background(), &ExternalClaims{
		Subject: u.ID.String(),
		Groups:  []string{"admin"},
	})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want synced admin", got.Role)
	}
}

func TestEnsureUserKeepsRoleWhenGroupsAbsent(t *testing.T) {
	store := newFakeUserStore()
	r := NewResolver(store, NewJWTService("s", 1), nil, nil)

	u := &models.User{ID: uuid.New(), Email: "c@example.com", Role: models.RoleAdmin}
	store.add(u)

	// No groups claim at all: the stored role is left alone.
	got, err := r.EnsureUser(context.Background(), &ExternalClaims{Subject: u.ID.String()})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want admin preserved", got.Role)
	}
}

func TestEnsureUserUnknownWithoutGroups(t *testing.T) {
	store := newFakeUserStore()
	r := NewResolver(store, NewJWTService("s", 1), nil, nil)

	_, err := r.EnsureUser(context.Background(), &ExternalClaims{Subject: uuid.New().String()})
	if apperr.KindOf(err) != apperr.KindInvalidCredential {
		t.Fatalf("got %v, want invalid credential", err)
	}
}

func TestEnsureUserMalformedSubject(t *testing.T) {
	r := NewResolver(newFakeUserStore(), NewJWTService("s", 1), nil, nil)
	_, err := r.EnsureUser(context.Background(), &ExternalClaims{Subject: "not-a-uuid", Groups: []string{"admin"}})
	if apperr.KindOf(err) != apperr.KindInvalidCredential {
		t.Fatalf("got %v, want invalid credential", err)
	}
}

// TestResolveDualMode runs both credential paths through one resolver: an
// externally issued RS256 token provisions a user, while a locally issued
// HS256 token still resolves through the fallback.
func TestResolveDualMode(t *testing.T) {
	key := testRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey})
	cache := NewKeySetCache(srv.server.URL, time.Hour, nil)
	verifier := NewExternalVerifier(cache, testIssuer, "cognito:groups")

	store := newFakeUserStore()
	jwtSvc := NewJWTService("test-secret", 1)
	r := NewResolver(store, jwtSvc, verifier, nil)

	subject := uuid.New()
	external := signExternal(t, key, "kid-1", jwt.MapClaims{
		"sub":            subject.String(),
		"iss":            testIssuer,
		"exp":            time.Now().Add(time.Hour).Unix(),
		"email":          "ext@example.com",
		"cognito:groups": []string{"organizer"},
	})

	extUser, err := r.Resolve(context.Background(), external)
	if err != nil {
		t.Fatalf("Resolve external: %v", err)
	}
	if extUser.ID != subject || extUser.Role != models.RoleOrganizer {
		t.Fatalf("external resolution: %+v", extUser)
	}

	local := &models.User{ID: uuid.New(), Email: "local@example.com", Role: models.RoleMember}
	store.add(local)
	localToken, err := jwtSvc.Generate(local.ID, local.Email, local.Role)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	locUser, err := r.Resolve(context.Background(), localToken)
	if err != nil {
		t.Fatalf("Resolve local with external configured: %v", err)
	}
	if locUser.ID != local.ID {
		t.Fatalf("local resolution: %+v", locUser)
	}
}
