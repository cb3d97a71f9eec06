package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/utils"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
	created []*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
}

func (s *fakeUserStore) add(u *models.User) {
	s.byEmail[u.Email] = u
	s.byID[u.ID] = u
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	s.add(u)
	s.created = append(s.created, u)
	return nil
}

type fakeRevoker struct {
	revoked map[string]bool
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: make(map[string]bool)}
}

func (r *fakeRevoker) Revoke(_ context.Context, jti string, _ time.Duration) error {
	r.revoked[jti] = true
	return nil
}

func (r *fakeRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	return r.revoked[jti], nil
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	user := &models.User{ID: uuid.New(), Email: "a@b.com", Role: models.RoleOrganizer}

	token, err := svc.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("UserID = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != models.RoleOrganizer {
		t.Errorf("Role = %s, want organizer", claims.Role)
	}
	if claims.ID == "" {
		t.Error("token ID (jti) is empty")
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-one", 1).Generate(&models.User{ID: uuid.New()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewJWTService("secret-two", 1).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate with wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestJWTGarbage(t *testing.T) {
	if _, err := NewJWTService("s", 1).Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func newTestHandler(store UserStore, revoker Revoker) *Handler {
	return NewHandler(store, NewJWTService("test-secret", 1), revoker, zap.NewNop())
}

func doJSON(t *testing.T, handler gin.HandlerFunc, method, path string, body any, setup func(*gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(c)
	}
	handler(c)
	return w
}

func TestRegister(t *testing.T) {
	store := newFakeUserStore()
	h := newTestHandler(store, newFakeRevoker())

	w := doJSON(t, h.Register, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "email": "ana@example.com", "password": "password123", "role": "attendee",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d users, want 1", len(store.created))
	}
	if store.created[0].Password == "password123" {
		t.Error("password stored in plaintext")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	store.add(&models.User{ID: uuid.New(), Email: "ana@example.com"})
	h := newTestHandler(store, newFakeRevoker())

	w := doJSON(t, h.Register, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "email": "ana@example.com", "password": "password123", "role": "attendee",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRegisterInvalidRole(t *testing.T) {
	h := newTestHandler(newFakeUserStore(), newFakeRevoker())
	w := doJSON(t, h.Register, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "email": "ana@example.com", "password": "password123", "role": "superuser",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store := newFakeUserStore()
	store.add(&models.User{ID: uuid.New(), Email: "ana@example.com", Password: hash, Role: models.RoleAttendee})
	h := newTestHandler(store, newFakeRevoker())

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"valid credentials", "ana@example.com", "password123", http.StatusOK},
		{"wrong password", "ana@example.com", "nope-nope-nope", http.StatusUnauthorized},
		{"unknown email", "bob@example.com", "password123", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h.Login, http.MethodPost, "/auth/login", gin.H{
				"email": tt.email, "password": tt.password,
			}, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	revoker := newFakeRevoker()
	h := newTestHandler(newFakeUserStore(), revoker)

	claims := &Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "token-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	w := doJSON(t, h.Logout, http.MethodPost, "/auth/logout", nil, func(c *gin.Context) {
		c.Set(ContextClaims, claims)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !revoker.revoked["token-123"] {
		t.Error("token was not revoked")
	}
}
