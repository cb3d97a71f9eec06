package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/models"
)

type fakeStore struct {
	invitations map[uuid.UUID]*models.Invitation
	event       *models.Event
}

func (s *fakeStore) attach(inv *models.Invitation) *models.Invitation {
	cp := *inv
	cp.Event = s.event
	return &cp
}

func (s *fakeStore) Create(_ context.Context, inv *models.Invitation) (bool, error) {
	for _, existing := range s.invitations {
		if existing.EventID == inv.EventID && existing.AttendeeID == inv.AttendeeID {
			return false, nil
		}
	}
	inv.ID = uuid.New()
	s.invitations[inv.ID] = inv
	return true, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Invitation, error) {
	if inv, ok := s.invitations[id]; ok {
		return s.attach(inv), nil
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) List(_ context.Context) ([]models.Invitation, error) {
	var list []models.Invitation
	for _, inv := range s.invitations {
		list = append(list, *s.attach(inv))
	}
	return list, nil
}

func (s *fakeStore) ListByAttendee(_ context.Context, attendeeID uuid.UUID) ([]models.Invitation, error) {
	var list []models.Invitation
	for _, inv := range s.invitations {
		if inv.AttendeeID == attendeeID {
			list = append(list, *s.attach(inv))
		}
	}
	return list, nil
}

func (s *fakeStore) UpdateRSVP(_ context.Context, id uuid.UUID, rsvp models.RSVPStatus) error {
	s.invitations[id].RSVP = rsvp
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.invitations, id)
	return nil
}

type fakeEvents struct {
	event *models.Event
}

func (e *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if e.event != nil && e.event.ID == id {
		return e.event, nil
	}
	return nil, errors.New("not found")
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (u *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := u.users[id]; ok {
		return user, nil
	}
	return nil, errors.New("not found")
}

type fakeAssignments struct {
	pairs map[[2]uuid.UUID]bool
}

func (a *fakeAssignments) IsAssigned(_ context.Context, organizerID, secretaryID uuid.UUID) (bool, error) {
	return a.pairs[[2]uuid.UUID{organizerID, secretaryID}], nil
}

type fixture struct {
	store       *fakeStore
	assignments *fakeAssignments
	handler     *Handler
	organizer   models.User
	secretary   models.User
	invitee     models.User
	other       models.User
	event       *models.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	organizer := models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	event := &models.Event{ID: uuid.New(), Name: "Expo", Status: models.EventStatusActive, OrganizerID: organizer.ID}
	f := &fixture{
		store:       &fakeStore{invitations: map[uuid.UUID]*models.Invitation{}, event: event},
		assignments: &fakeAssignments{pairs: map[[2]uuid.UUID]bool{}},
		organizer:   organizer,
		secretary:   models.User{ID: uuid.New(), Role: models.RoleSecretary},
		invitee:     models.User{ID: uuid.New(), Role: models.RoleAttendee},
		other:       models.User{ID: uuid.New(), Role: models.RoleAttendee},
		event:       event,
	}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{}}
	for _, u := range []models.User{f.organizer, f.secretary, f.invitee, f.other} {
		u := u
		users.users[u.ID] = &u
	}
	f.handler = NewHandler(f.store, &fakeEvents{event: event}, users, f.assignments, zap.NewNop())
	return f
}

func (f *fixture) do(t *testing.T, handler gin.HandlerFunc, actor models.User, method string, body any, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	c.Request = httptest.NewRequest(method, "/invitations", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	c.Set(auth.ContextUser, &actor)
	handler(c)
	return w
}

func (f *fixture) seed(t *testing.T) *models.Invitation {
	t.Helper()
	inv := &models.Invitation{EventID: f.event.ID, AttendeeID: f.invitee.ID, RSVP: models.RSVPPending}
	if _, err := f.store.Create(context.Background(), inv); err != nil {
		t.Fatalf("seed invitation: %v", err)
	}
	return inv
}

func idParam(id uuid.UUID) gin.Params {
	return gin.Params{{Key: "id", Value: id.String()}}
}

func TestSendInvitations(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"event_id": f.event.ID.String(), "attendee_ids": []string{f.invitee.ID.String()}}

	w := f.do(t, f.handler.Send, f.organizer, http.MethodPost, body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("first send: status = %d, want 201: %s", w.Code, w.Body.String())
	}
	w = f.do(t, f.handler.Send, f.organizer, http.MethodPost, body, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate send: status = %d, want 409", w.Code)
	}
}

func TestSendBySecretary(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"event_id": f.event.ID.String(), "attendee_ids": []string{f.invitee.ID.String()}}

	w := f.do(t, f.handler.Send, f.secretary, http.MethodPost, body, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unassigned secretary: status = %d, want 403", w.Code)
	}

	f.assignments.pairs[[2]uuid.UUID{f.organizer.ID, f.secretary.ID}] = true
	w = f.do(t, f.handler.Send, f.secretary, http.MethodPost, body, nil)
	if w.Code != http.StatusCreated {
		t.Errorf("assigned secretary: status = %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestSendToNonAttendee(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"event_id": f.event.ID.String(), "attendee_ids": []string{f.secretary.ID.String()}}
	w := f.do(t, f.handler.Send, f.organizer, http.MethodPost, body, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRSVPBySubject(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	w := f.do(t, f.handler.UpdateRSVP, f.invitee, http.MethodPut, gin.H{"rsvp": "accepted"}, idParam(inv.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if f.store.invitations[inv.ID].RSVP != models.RSVPAccepted {
		t.Errorf("rsvp = %s, want accepted", f.store.invitations[inv.ID].RSVP)
	}
}

func TestRSVPByNonSubjectForbidden(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	w := f.do(t, f.handler.UpdateRSVP, f.other, http.MethodPut, gin.H{"rsvp": "accepted"}, idParam(inv.ID))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRSVPBackToPendingRejected(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	w := f.do(t, f.handler.UpdateRSVP, f.invitee, http.MethodPut, gin.H{"rsvp": "pending"}, idParam(inv.ID))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateDuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, f.handler.Create, f.organizer, http.MethodPost, gin.H{
		"event_id": f.event.ID.String(), "attendee_id": f.invitee.ID.String(),
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestListFiltersForAttendee(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, f.handler.List, f.other, http.MethodGet, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Data []models.Invitation `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 0 {
		t.Errorf("attendee sees %d invitations addressed to others, want 0", len(body.Data))
	}
}

func TestMineAttendeeOnly(t *testing.T) {
	f := newFixture(t)
	if w := f.do(t, f.handler.Mine, f.organizer, http.MethodGet, nil, nil); w.Code != http.StatusForbidden {
		t.Errorf("organizer: status = %d, want 403", w.Code)
	}
	if w := f.do(t, f.handler.Mine, f.invitee, http.MethodGet, nil, nil); w.Code != http.StatusOK {
		t.Errorf("attendee: status = %d, want 200", w.Code)
	}
}
