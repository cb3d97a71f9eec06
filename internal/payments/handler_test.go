package payments

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
	payments map[uuid.UUID]*models.Payment
	ticket   *models.Ticket
}

func (s *fakeStore) attach(p *models.Payment) *models.Payment {
	cp := *p
	cp.Ticket = s.ticket
	return &cp
}

func (s *fakeStore) hasCompleted(ticketID uuid.UUID, except uuid.UUID) bool {
	for _, p := range s.payments {
		if p.TicketID == ticketID && p.Status == models.PaymentCompleted && p.ID != except {
			return true
		}
	}
	return false
}

func (s *fakeStore) Create(_ context.Context, p *models.Payment) error {
	if p.Status == models.PaymentCompleted && s.hasCompleted(p.TicketID, uuid.Nil) {
		return ErrCompletedExists
	}
	p.ID = uuid.New()
	s.payments[p.ID] = p
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	if p, ok := s.payments[id]; ok {
		return s.attach(p), nil
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) List(_ context.Context) ([]models.Payment, error) {
	var list []models.Payment
	for _, p := range s.payments {
		list = append(list, *s.attach(p))
	}
	return list, nil
}

func (s *fakeStore) ListByTicketOwner(_ context.Context, attendeeID uuid.UUID) ([]models.Payment, error) {
	var list []models.Payment
	for _, p := range s.payments {
		if s.ticket.AttendeeID == attendeeID {
			list = append(list, *s.attach(p))
		}
	}
	return list, nil
}

func (s *fakeStore) Update(_ context.Context, p *models.Payment) error {
	if p.Status == models.PaymentCompleted && s.hasCompleted(p.TicketID, p.ID) {
		return ErrCompletedExists
	}
	s.payments[p.ID] = p
	return nil
}

func (s *fakeStore) Process(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := s.payments[id]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	if s.hasCompleted(p.TicketID, p.ID) {
		return false, ErrCompletedExists
	}
	p.Status = models.PaymentCompleted
	return true, nil
}

func (s *fakeStore) HasCompletedForTicket(_ context.Context, ticketID uuid.UUID) (bool, error) {
	return s.hasCompleted(ticketID, uuid.Nil), nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.payments, id)
	return nil
}

type fakeTickets struct {
	ticket *models.Ticket
}

func (f *fakeTickets) GetByID(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	if f.ticket != nil && f.ticket.ID == id {
		return f.ticket, nil
	}
	return nil, errors.New("not found")
}

type fixture struct {
	store     *fakeStore
	handler   *Handler
	organizer models.User
	owner     models.User
	stranger  models.User
	ticket    *models.Ticket
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	owner := models.User{ID: uuid.New(), Role: models.RoleAttendee}
	ticket := &models.Ticket{ID: uuid.New(), EventID: uuid.New(), AttendeeID: owner.ID, Price: 40}
	f := &fixture{
		store:     &fakeStore{payments: map[uuid.UUID]*models.Payment{}, ticket: ticket},
		organizer: models.User{ID: uuid.New(), Role: models.RoleOrganizer},
		owner:     owner,
		stranger:  models.User{ID: uuid.New(), Role: models.RoleAttendee},
		ticket:    ticket,
	}
	f.handler = NewHandler(f.store, &fakeTickets{ticket: ticket}, zap.NewNop())
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
	c.Request = httptest.NewRequest(method, "/payments", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	c.Set(auth.ContextUser, &actor)
	handler(c)
	return w
}

func (f *fixture) seed(t *testing.T, status models.PaymentStatus) *models.Payment {
	t.Helper()
	p := &models.Payment{TicketID: f.ticket.ID, Amount: 40, Method: "card", Status: status}
	if err := f.store.Create(context.Background(), p); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func idParam(id uuid.UUID) gin.Params {
	return gin.Params{{Key: "id", Value: id.String()}}
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, f.handler.Create, f.owner, http.MethodPost, gin.H{
		"ticket_id": f.ticket.ID.String(), "amount": 40, "method": "card",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var body struct {
		Data models.Payment `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Status != models.PaymentPending {
		t.Errorf("status = %s, want pending", body.Data.Status)
	}
}

func TestCreatePaymentInvalidStatus(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, f.handler.Create, f.owner, http.MethodPost, gin.H{
		"ticket_id": f.ticket.ID.String(), "amount": 40, "method": "card", "status": "refunded",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreatePaymentSettledTicketConflicts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.PaymentCompleted)

	w := f.do(t, f.handler.Create, f.owner, http.MethodPost, gin.H{
		"ticket_id": f.ticket.ID.String(), "amount": 40, "method": "card",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestProcessPayment(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, models.PaymentPending)

	w := f.do(t, f.handler.Process, f.organizer, http.MethodPost, nil, idParam(p.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("first process: status = %d, want 200: %s", w.Code, w.Body.String())
	}
	w = f.do(t, f.handler.Process, f.organizer, http.MethodPost, nil, idParam(p.ID))
	if w.Code != http.StatusConflict {
		t.Errorf("second process: status = %d, want 409", w.Code)
	}
}

func TestProcessByAttendeeForbidden(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, models.PaymentPending)
	w := f.do(t, f.handler.Process, f.owner, http.MethodPost, nil, idParam(p.ID))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestProcessFailedPaymentConflicts(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, models.PaymentFailed)
	w := f.do(t, f.handler.Process, f.organizer, http.MethodPost, nil, idParam(p.ID))
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestVerifyIsPureRead(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, models.PaymentPending)

	for i := 0; i < 2; i++ {
		w := f.do(t, f.handler.Verify, f.owner, http.MethodGet, nil, idParam(p.ID))
		if w.Code != http.StatusOK {
			t.Fatalf("verify #%d: status = %d, want 200", i+1, w.Code)
		}
		var body struct {
			Data struct {
				Completed bool `json:"completed"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Data.Completed {
			t.Error("pending payment reported completed")
		}
	}
	if f.store.payments[p.ID].Status != models.PaymentPending {
		t.Error("verify changed the payment status")
	}
}

func TestViewPayment(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, models.PaymentPending)

	if w := f.do(t, f.handler.Get, f.owner, http.MethodGet, nil, idParam(p.ID)); w.Code != http.StatusOK {
		t.Errorf("ticket owner: status = %d, want 200", w.Code)
	}
	if w := f.do(t, f.handler.Get, f.stranger, http.MethodGet, nil, idParam(p.ID)); w.Code != http.StatusForbidden {
		t.Errorf("stranger attendee: status = %d, want 403", w.Code)
	}
}
