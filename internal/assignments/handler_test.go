package assignments

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
	pairs map[[2]uuid.UUID]bool
	users map[uuid.UUID]*models.User
}

func (s *fakeStore) Assign(_ context.Context, organizerID, secretaryID uuid.UUID) error {
	s.pairs[[2]uuid.UUID{organizerID, secretaryID}] = true
	return nil
}

func (s *fakeStore) Unassign(_ context.Context, organizerID, secretaryID uuid.UUID) error {
	delete(s.pairs, [2]uuid.UUID{organizerID, secretaryID})
	return nil
}

func (s *fakeStore) ListSecretaries(_ context.Context, organizerID uuid.UUID) ([]models.UserPublic, error) {
	var list []models.UserPublic
	for pair := range s.pairs {
		if pair[0] == organizerID {
			list = append(list, s.users[pair[1]].ToPublic())
		}
	}
	return list, nil
}

func (s *fakeStore) IsAssigned(_ context.Context, organizerID, secretaryID uuid.UUID) (bool, error) {
	return s.pairs[[2]uuid.UUID{organizerID, secretaryID}], nil
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

type fixture struct {
	store     *fakeStore
	handler   *Handler
	organizer models.User
	secretary models.User
	attendee  models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		organizer: models.User{ID: uuid.New(), Role: models.RoleOrganizer},
		secretary: models.User{ID: uuid.New(), Role: models.RoleSecretary},
		attendee:  models.User{ID: uuid.New(), Role: models.RoleAttendee},
	}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{}}
	for _, u := range []models.User{f.organizer, f.secretary, f.attendee} {
		u := u
		users.users[u.ID] = &u
	}
	f.store = &fakeStore{pairs: map[[2]uuid.UUID]bool{}, users: users.users}
	f.handler = NewHandler(f.store, users, zap.NewNop())
	return f
}

func (f *fixture) do(t *testing.T, handler gin.HandlerFunc, actor models.User, organizerID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	c.Request = httptest.NewRequest(http.MethodPost, "/organizers", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: organizerID.String()}}
	c.Set(auth.ContextUser, &actor)
	handler(c)
	return w
}

func TestAssignSecretary(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"secretary_id": f.secretary.ID.String()}

	w := f.do(t, f.handler.Assign, f.organizer, f.organizer.ID, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	assigned, _ := f.store.IsAssigned(context.Background(), f.organizer.ID, f.secretary.ID)
	if !assigned {
		t.Error("pair not recorded")
	}

	// attaching the same pair again succeeds
	if w := f.do(t, f.handler.Assign, f.organizer, f.organizer.ID, body); w.Code != http.StatusOK {
		t.Errorf("repeat assign: status = %d, want 200", w.Code)
	}
}

func TestAssignByOtherOrganizerForbidden(t *testing.T) {
	f := newFixture(t)
	other := models.User{ID: uuid.New(), Role: models.RoleOrganizer}
	w := f.do(t, f.handler.Assign, other, f.organizer.ID, gin.H{"secretary_id": f.secretary.ID.String()})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAssignNonSecretary(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, f.handler.Assign, f.organizer, f.organizer.ID, gin.H{"secretary_id": f.attendee.ID.String()})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAssignOrganizerNotFound(t *testing.T) {
	f := newFixture(t)
	admin := models.User{ID: uuid.New(), Role: models.RoleAdministrator}

	w := f.do(t, f.handler.Assign, admin, uuid.New(), gin.H{"secretary_id": f.secretary.ID.String()})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown organizer: status = %d, want 404", w.Code)
	}
	// the path user exists but is not an organizer
	w = f.do(t, f.handler.Assign, admin, f.attendee.ID, gin.H{"secretary_id": f.secretary.ID.String()})
	if w.Code != http.StatusNotFound {
		t.Errorf("non-organizer path user: status = %d, want 404", w.Code)
	}
}

func TestUnassignIsIdempotent(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"secretary_id": f.secretary.ID.String()}

	if w := f.do(t, f.handler.Assign, f.organizer, f.organizer.ID, body); w.Code != http.StatusOK {
		t.Fatalf("assign: status = %d", w.Code)
	}
	if w := f.do(t, f.handler.Unassign, f.organizer, f.organizer.ID, body); w.Code != http.StatusOK {
		t.Errorf("unassign: status = %d, want 200", w.Code)
	}
	if w := f.do(t, f.handler.Unassign, f.organizer, f.organizer.ID, body); w.Code != http.StatusOK {
		t.Errorf("unassign detached pair: status = %d, want 200", w.Code)
	}
}

func TestListSecretaries(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Assign(context.Background(), f.organizer.ID, f.secretary.ID); err != nil {
		t.Fatalf("seed pair: %v", err)
	}

	w := f.do(t, f.handler.List, f.organizer, f.organizer.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Data []models.UserPublic `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].ID != f.secretary.ID {
		t.Errorf("got %v, want the one assigned secretary", body.Data)
	}

	if w := f.do(t, f.handler.List, f.secretary, f.organizer.ID, nil); w.Code != http.StatusForbidden {
		t.Errorf("secretary listing: status = %d, want 403", w.Code)
	}
}
