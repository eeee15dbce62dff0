package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
	"github.com/eventmaster/backend/internal/registrations"
)

type fakeBackend struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
	regs   map[uuid.UUID]*models.Registration
	users  map[uuid.UUID]*models.User
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		events: make(map[uuid.UUID]*models.Event),
		regs:   make(map[uuid.UUID]*models.Registration),
		users:  make(map[uuid.UUID]*models.User),
	}
}

func (b *fakeBackend) addEvent(e *models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[e.ID] = e
}

func (b *fakeBackend) addRegistration(r *models.Registration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	b.regs[r.ID] = r
	if r.Status.Active() {
		b.events[r.EventID].RegisteredCount++
	}
}

func (b *fakeBackend) userCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.users)
}

type fakeEventStore struct{ b *fakeBackend }

func (s fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	e, ok := s.b.events[id]
	if !ok {
		return nil, apperr.NotFound("event not found")
	}
	cp := *e
	return &cp, nil
}

type fakeRegStore struct{ b *fakeBackend }

func (s fakeRegStore) GetByTicket(_ context.Context, token string) (*models.Registration, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, r := range s.b.regs {
		if r.TicketToken == token {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("ticket not found")
}

func (s fakeRegStore) GetByEventAndUser(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, r := range s.b.regs {
		if r.EventID == eventID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("registration not found")
}

func (s fakeRegStore) CreateActive(_ context.Context, reg *models.Registration) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	e, ok := s.b.events[reg.EventID]
	if !ok {
		return apperr.NotFound("event not found")
	}
	if e.RegisteredCount >= e.Capacity {
		return apperr.InvalidState("event is at full capacity")
	}
	e.RegisteredCount++
	reg.ID = uuid.New()
	reg.EventTitle = e.Title
	reg.EventStartAt = e.StartAt
	reg.CreatedAt = time.Now()
	cp := *reg
	s.b.regs[reg.ID] = &cp
	return nil
}

func (s fakeRegStore) Reactivate(_ context.Context, id uuid.UUID, to models.RegistrationStatus, refreshCreatedAt bool) (*models.Registration, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, ok := s.b.regs[id]
	if !ok {
		return nil, apperr.NotFound("registration not found")
	}
	if r.Status != models.RegistrationCancelled {
		return nil, apperr.InvalidState("registration is not cancelled")
	}
	e := s.b.events[r.EventID]
	if e.RegisteredCount >= e.Capacity {
		return nil, apperr.InvalidState("event is at full capacity")
	}
	e.RegisteredCount++
	r.Status = to
	if refreshCreatedAt {
		r.CreatedAt = time.Now()
	}
	cp := *r
	return &cp, nil
}

func (s fakeRegStore) CheckIn(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, ok := s.b.regs[id]
	if !ok {
		return nil, apperr.NotFound("registration not found")
	}
	if r.Status != models.RegistrationRegistered {
		return nil, apperr.InvalidState("registration is not active")
	}
	r.Status = models.RegistrationCheckedIn
	cp := *r
	return &cp, nil
}

type fakeUserStore struct{ b *fakeBackend }

func (s fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, u := range s.b.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (s fakeUserStore) Create(_ context.Context, email, passwordHash, displayName string, role models.Role) (*models.User, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: email, Password: passwordHash, DisplayName: displayName, Role: role}
	s.b.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func newTestService(b *fakeBackend) *Service {
	return NewService(fakeRegStore{b}, fakeEventStore{b}, fakeUserStore{b}, nil)
}

func publishedEvent(organizerID uuid.UUID, capacity int) *models.Event {
	start := time.Now().Add(2 * time.Hour)
	return &models.Event{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		Title:       "Go Conf",
		StartAt:     start,
		EndAt:       start.Add(8 * time.Hour),
		Capacity:    capacity,
		Status:      models.EventPublished,
	}
}

func registered(b *fakeBackend, eventID uuid.UUID) *models.Registration {
	r := &models.Registration{
		EventID:     eventID,
		UserID:      uuid.New(),
		Status:      models.RegistrationRegistered,
		TicketToken: registrations.NewTicketToken(eventID, uuid.New()),
		CreatedAt:   time.Now(),
	}
	b.addRegistration(r)
	return r
}

func TestVerify(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	b.addEvent(event)
	reg := registered(b, event.ID)
	svc := newTestService(b)
	ctx := context.Background()

	res, err := svc.Verify(ctx, owner, reg.TicketToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Success || res.Message != "check-in successful" {
		t.Fatalf("result = %+v", res)
	}
	if res.Registration.Status != models.RegistrationCheckedIn {
		t.Fatalf("status = %q", res.Registration.Status)
	}

	// A second scan of the same ticket is a negative outcome, not an error.
	res, err = svc.Verify(ctx, owner, reg.TicketToken)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if res.Success || res.Message != "already checked in" {
		t.Fatalf("second scan result = %+v", res)
	}
}

func TestVerifyCancelledTicket(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	b.addEvent(event)
	reg := registered(b, event.ID)
	b.mu.Lock()
	b.regs[reg.ID].Status = models.RegistrationCancelled
	b.mu.Unlock()
	svc := newTestService(b)

	res, err := svc.Verify(context.Background(), owner, reg.TicketToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Success || res.Message != "ticket was cancelled" {
		t.Fatalf("result = %+v", res)
	}
}

func TestVerifyGuards(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	b.addEvent(event)
	reg := registered(b, event.ID)
	svc := newTestService(b)
	ctx := context.Background()

	if _, err := svc.Verify(ctx, &models.User{ID: uuid.New(), Role: models.RoleMember}, reg.TicketToken); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("member verify: got %v, want forbidden", err)
	}
	if _, err := svc.Verify(ctx, &models.User{ID: uuid.New(), Role: models.RoleOrganizer}, reg.TicketToken); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("non-owner organizer verify: got %v, want forbidden", err)
	}
	if _, err := svc.Verify(ctx, &models.User{ID: uuid.New(), Role: models.RoleAdmin}, reg.TicketToken); err != nil {
		t.Fatalf("admin verify: %v", err)
	}
	if _, err := svc.Verify(ctx, owner, "TKT-unknown"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown ticket: got %v, want not found", err)
	}
}

func TestVerifyUnpublishedEvent(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	event.Status = models.EventPending
	b.addEvent(event)
	reg := registered(b, event.ID)
	svc := newTestService(b)

	if _, err := svc.Verify(context.Background(), owner, reg.TicketToken); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("got %v, want invalid state", err)
	}
}

func TestWalkInProvisionsNewAttendee(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	b.addEvent(event)
	svc := newTestService(b)
	ctx := context.Background()

	res, err := svc.WalkIn(ctx, owner, event.ID, "door@example.com", "")
	if err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if !res.Success || res.Message != "walk-in registered and checked in" {
		t.Fatalf("result = %+v", res)
	}
	if res.Registration.Status != models.RegistrationCheckedIn {
		t.Fatalf("status = %q", res.Registration.Status)
	}
	if b.userCount() != 1 {
		t.Fatalf("users = %d, want 1 provisioned", b.userCount())
	}

	user, err := fakeUserStore{b}.GetByEmail(ctx, "door@example.com")
	if err != nil {
		t.Fatalf("lookup provisioned user: %v", err)
	}
	if user.Role != models.RoleMember {
		t.Fatalf("provisioned role = %q, want member", user.Role)
	}
	if user.DisplayName != "door" {
		t.Fatalf("display name = %q, want email local part", user.DisplayName)
	}
	if user.Password == "" {
		t.Fatalf("provisioned walk-in must carry an unusable secret hash")
	}

	// A repeat walk-in for the same email must not provision a second user.
	res, err = svc.WalkIn(ctx, owner, event.ID, "door@example.com", "")
	if err != nil {
		t.Fatalf("repeat walk-in: %v", err)
	}
	if res.Success || res.Message != "already checked in" {
		t.Fatalf("repeat result = %+v", res)
	}
	if b.userCount() != 1 {
		t.Fatalf("users = %d after repeat, want 1", b.userCount())
	}
}

func TestWalkInExistingRegistration(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	b.addEvent(event)
	svc := newTestService(b)
	ctx := context.Background()

	alice := &models.User{ID: uuid.New(), Email: "alice@example.com", DisplayName: "Alice", Role: models.RoleMember}
	b.mu.Lock()
	b.users[alice.ID] = alice
	b.mu.Unlock()
	reg := &models.Registration{
		EventID:     event.ID,
		UserID:      alice.ID,
		Status:      models.RegistrationRegistered,
		TicketToken: registrations.NewTicketToken(event.ID, alice.ID),
	}
	b.addRegistration(reg)

	res, err := svc.WalkIn(ctx, owner, event.ID, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if !res.Success || res.Message != "existing registration checked in" {
		t.Fatalf("result = %+v", res)
	}
	if res.Registration.ID != reg.ID {
		t.Fatalf("walk-in created a new registration for an existing one")
	}
	if b.userCount() != 1 {
		t.Fatalf("users = %d, want 1", b.userCount())
	}
}

func TestWalkInReactivatesCancelled(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 10)
	b.addEvent(event)
	svc := newTestService(b)
	ctx := context.Background()

	bob := &models.User{ID: uuid.New(), Email: "bob@example.com", Role: models.RoleMember}
	b.mu.Lock()
	b.users[bob.ID] = bob
	b.mu.Unlock()
	reg := &models.Registration{
		EventID:     event.ID,
		UserID:      bob.ID,
		Status:      models.RegistrationCancelled,
		TicketToken: registrations.NewTicketToken(event.ID, bob.ID),
	}
	b.addRegistration(reg)

	res, err := svc.WalkIn(ctx, owner, event.ID, "bob@example.com", "")
	if err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Registration.ID != reg.ID || res.Registration.Status != models.RegistrationCheckedIn {
		t.Fatalf("reactivated registration = %+v", res.Registration)
	}
	if res.Registration.TicketToken != reg.TicketToken {
		t.Fatalf("ticket token changed on walk-in reactivation")
	}
}

func TestWalkInGuards(t *testing.T) {
	b := newFakeBackend()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := publishedEvent(owner.ID, 1)
	b.addEvent(event)
	svc := newTestService(b)
	ctx := context.Background()

	if _, err := svc.WalkIn(ctx, &models.User{ID: uuid.New(), Role: models.RoleMember}, event.ID, "x@example.com", ""); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("member walk-in: got %v, want forbidden", err)
	}
	if _, err := svc.WalkIn(ctx, &models.User{ID: uuid.New(), Role: models.RoleOrganizer}, event.ID, "x@example.com", ""); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("non-owner walk-in: got %v, want forbidden", err)
	}
	if _, err := svc.WalkIn(ctx, owner, uuid.New(), "x@example.com", ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown event: got %v, want not found", err)
	}

	pending := publishedEvent(owner.ID, 1)
	pending.Status = models.EventPending
	b.addEvent(pending)
	if _, err := svc.WalkIn(ctx, owner, pending.ID, "x@example.com", ""); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("pending event walk-in: got %v, want invalid state", err)
	}

	// Walk-ins respect capacity like any other registration.
	if _, err := svc.WalkIn(ctx, owner, event.ID, "first@example.com", ""); err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if _, err := svc.WalkIn(ctx, owner, event.ID, "second@example.com", ""); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("walk-in over capacity: got %v, want invalid state", err)
	}
}
