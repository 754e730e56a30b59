package contact_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"cherrycake/internal/contact"
	"cherrycake/internal/inbox"
	"cherrycake/internal/mailer"
	"cherrycake/internal/notifications"
	"cherrycake/internal/testsupport"
)

type storeStub struct {
	mu      sync.Mutex
	saveErr error
	saved   []*inbox.Message
	marks   map[int64]inbox.RelayStatus
}

func (s *storeStub) Save(_ context.Context, name, email, body, remote string) (*inbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	msg := &inbox.Message{
		ID:         int64(len(s.saved) + 1),
		Name:       name,
		Email:      email,
		Body:       body,
		RemoteAddr: remote,
		CreatedAt:  time.Unix(1_700_000_000, 0).UTC(),
	}
	s.saved = append(s.saved, msg)
	return msg, nil
}

func (s *storeStub) MarkRelayed(_ context.Context, id int64, status inbox.RelayStatus, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marks == nil {
		s.marks = map[int64]inbox.RelayStatus{}
	}
	s.marks[id] = status
	return nil
}

type relayStub struct {
	enabled bool
	err     error
	sent    []mailer.Message
}

func (r *relayStub) Enabled() bool { return r.enabled }

func (r *relayStub) Send(_ context.Context, msg mailer.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type notifierStub struct {
	events []notifications.Event
}

func (n *notifierStub) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.events = append(n.events, event)
	return nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		sub   contact.Submission
		field string
	}{
		{name: "valid", sub: contact.Submission{Email: "a@b.cd", Message: "hi"}},
		{name: "valid with name", sub: contact.Submission{Name: "Ada", Email: "ada@example.com", Message: "hi"}},
		{name: "missing email", sub: contact.Submission{Message: "hi"}, field: "email"},
		{name: "missing message", sub: contact.Submission{Email: "a@b.cd", Message: "  "}, field: "message"},
		{name: "no at sign", sub: contact.Submission{Email: "ab.cd", Message: "hi"}, field: "email"},
		{name: "no dot", sub: contact.Submission{Email: "a@bcd", Message: "hi"}, field: "email"},
		{name: "embedded space", sub: contact.Submission{Email: "a b@c.de", Message: "hi"}, field: "email"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sub.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *contact.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	short := strings.Repeat("가", 100)
	if got := contact.Summary(short); got != short {
		t.Fatalf("100 runes should not be cut")
	}
	long := strings.Repeat("x", 150)
	got := contact.Summary(long)
	if got != strings.Repeat("x", 100)+"..." {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSubmitRelaysAndRecordsOutcome(t *testing.T) {
	tests := []struct {
		name       string
		relay      *relayStub
		wantStatus inbox.RelayStatus
		wantEvents []notifications.Event
	}{
		{
			name:       "relay disabled",
			relay:      &relayStub{},
			wantStatus: inbox.RelaySkipped,
			wantEvents: []notifications.Event{notifications.EventContactReceived},
		},
		{
			name:       "relay sent",
			relay:      &relayStub{enabled: true},
			wantStatus: inbox.RelaySent,
			wantEvents: []notifications.Event{notifications.EventContactReceived},
		},
		{
			name:       "relay failed",
			relay:      &relayStub{enabled: true, err: errors.New("smtp down")},
			wantStatus: inbox.RelayFailed,
			wantEvents: []notifications.Event{notifications.EventContactRelayFailed, notifications.EventContactReceived},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &storeStub{}
			notifier := &notifierStub{}
			svc := contact.NewService(store, tc.relay, notifier, nil)

			msg, err := svc.Submit(context.Background(), contact.Submission{Email: "a@b.cd", Message: "hello"}, "198.51.100.1")
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if msg.ID != 1 || msg.RemoteAddr != "198.51.100.1" {
				t.Fatalf("unexpected message %+v", msg)
			}
			if store.marks[1] != tc.wantStatus {
				t.Fatalf("expected relay status %s, got %s", tc.wantStatus, store.marks[1])
			}
			if diff := cmp.Diff(tc.wantEvents, notifier.events); diff != "" {
				t.Fatalf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubmitValidationSkipsStore(t *testing.T) {
	store := &storeStub{}
	svc := contact.NewService(store, nil, nil, nil)
	_, err := svc.Submit(context.Background(), contact.Submission{Email: "bad", Message: "x"}, "")
	var verr *contact.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatal("invalid submission must not be stored")
	}
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:51000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, payload
}

func TestHandlerResponses(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		saveErr  error
		wantCode int
		wantKey  string
	}{
		{name: "success", body: `{"name":"Ada","email":"ada@example.com","message":"hi"}`, wantCode: http.StatusOK, wantKey: "success"},
		{name: "bad email", body: `{"email":"nope","message":"hi"}`, wantCode: http.StatusBadRequest, wantKey: "error"},
		{name: "missing message", body: `{"email":"a@b.cd"}`, wantCode: http.StatusBadRequest, wantKey: "error"},
		{name: "malformed json", body: `{"email":`, wantCode: http.StatusBadRequest, wantKey: "error"},
		{name: "wrong type", body: `{"email":5,"message":"hi"}`, wantCode: http.StatusBadRequest, wantKey: "error"},
		{name: "store failure", body: `{"email":"a@b.cd","message":"hi"}`, saveErr: errors.New("disk full"), wantCode: http.StatusInternalServerError, wantKey: "error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := contact.NewService(&storeStub{saveErr: tc.saveErr}, nil, nil, nil)
			h := contact.NewHandler(svc, 0, 0, nil)
			w, payload := post(t, h, tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d (%v)", tc.wantCode, w.Code, payload)
			}
			if _, ok := payload[tc.wantKey]; !ok {
				t.Fatalf("expected %q in %v", tc.wantKey, payload)
			}
		})
	}
}

func TestHandlerRejectsGet(t *testing.T) {
	h := contact.NewHandler(contact.NewService(&storeStub{}, nil, nil, nil), 0, 0, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHandlerRateLimitsPerClient(t *testing.T) {
	store := &storeStub{}
	h := contact.NewHandler(contact.NewService(store, nil, nil, nil), 1, 2, nil)
	body := `{"email":"a@b.cd","message":"hi"}`

	for i := 0; i < 2; i++ {
		if w, _ := post(t, h, body); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w, _ := post(t, h, body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if len(store.saved) != 2 {
		t.Fatalf("rate limited request must not be stored, saved %d", len(store.saved))
	}

	other := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	other.RemoteAddr = "192.0.2.50:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client should not be limited, got %d", rec.Code)
	}
}

func TestSubmitPersistsToInbox(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenInbox(t, cfg)
	svc := contact.NewService(store, mailer.New(cfg), notifications.NewService(cfg), nil)

	msg, err := svc.Submit(context.Background(), contact.Submission{Name: "Ada", Email: "ada@example.com", Message: "Bravo"}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := store.Get(context.Background(), msg.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.RelayStatus != inbox.RelaySkipped || got.Name != "Ada" {
		t.Fatalf("unexpected stored message %+v", got)
	}
}
