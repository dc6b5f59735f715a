package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"procurement/internal/client"
	"procurement/internal/database"
	"procurement/internal/lifecycle"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeBackend is an in-memory stand-in for the procurement REST API.
type fakeBackend struct {
	mu       sync.Mutex
	requests map[string]*model.PurchaseRequest
	order    []string
	pos      []model.PurchaseOrder
	calls    []string
	uploads  map[string]string // form field -> file name
	fail     map[string]int    // "METHOD path" -> status
	nextID   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		requests: make(map[string]*model.PurchaseRequest),
		uploads:  make(map[string]string),
		fail:     make(map[string]int),
	}
}

func (f *fakeBackend) put(r model.PurchaseRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[r.ID]; !ok {
		f.order = append(f.order, r.ID)
	}
	cp := r
	f.requests[r.ID] = &cp
}

func (f *fakeBackend) get(id string) model.PurchaseRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.requests[id]
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	withRequest := func(fn func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			pr, ok := f.requests[r.PathValue("id")]
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
				return
			}
			fn(w, r, pr)
		}
	}

	mux.HandleFunc("GET /api/requests/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := make([]model.PurchaseRequest, 0, len(f.order))
		for _, id := range f.order {
			list = append(list, *f.requests[id])
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(list), "results": list})
	})
	mux.HandleFunc("GET /api/requests/my_approvals/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := make([]model.PurchaseRequest, 0)
		for _, id := range f.order {
			if len(f.requests[id].Approvals) > 0 {
				list = append(list, *f.requests[id])
			}
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("POST /api/requests/{$}", func(w http.ResponseWriter, r *http.Request) {
		var in client.RequestPayload
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		pr := &model.PurchaseRequest{
			ID:               fmt.Sprintf("new-%d", f.nextID),
			Title:            in.Title,
			Items:            in.Items,
			TotalAmount:      in.TotalAmount,
			Status:           model.StatusPending,
			CreatedBy:        "u-staff",
			ReceiptRequired:  model.Bool(true),
			ReceiptSubmitted: model.Bool(false),
		}
		f.requests[pr.ID] = pr
		f.order = append(f.order, pr.ID)
		writeJSON(w, http.StatusCreated, pr)
	})
	mux.HandleFunc("GET /api/requests/{id}/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		writeJSON(w, http.StatusOK, pr)
	}))
	mux.HandleFunc("PATCH /api/requests/{id}/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		var in client.RequestPayload
		_ = json.NewDecoder(r.Body).Decode(&in)
		pr.Title = in.Title
		pr.Items = in.Items
		pr.TotalAmount = in.TotalAmount
		writeJSON(w, http.StatusOK, pr)
	}))
	mux.HandleFunc("DELETE /api/requests/{id}/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		delete(f.requests, pr.ID)
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("PATCH /api/requests/{id}/approve/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		pr.Status = model.StatusApproved
		pr.PaymentStatus = model.PaymentPending
		pr.Approvals = append(pr.Approvals, model.Approval{Level: 1, Action: model.ApprovalActionApproved, Approver: "u-approver"})
		writeJSON(w, http.StatusOK, map[string]string{"message": "Request approved successfully"})
	}))
	mux.HandleFunc("PATCH /api/requests/{id}/reject/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		pr.Status = model.StatusRejected
		writeJSON(w, http.StatusOK, map[string]string{"message": "Request rejected successfully"})
	}))
	mux.HandleFunc("POST /api/requests/{id}/request_clarification/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		pr.ClarificationRequested = model.Bool(true)
		pr.ClarificationMessage = body.Message
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("POST /api/requests/{id}/respond_to_clarification/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		var body struct {
			Response string `json:"response"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		pr.ClarificationRequested = model.Bool(false)
		pr.ClarificationResponse = body.Response
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("POST /api/requests/{id}/upload_receipt/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad form"})
			return
		}
		_, hdr, err := r.FormFile("receipt")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Receipt file is required"})
			return
		}
		f.uploads["receipt"] = hdr.Filename
		pr.ReceiptSubmitted = model.Bool(true)
		pr.ReceiptFile = "/media/receipts/" + hdr.Filename
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("POST /api/requests/{id}/upload_proforma/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad form"})
			return
		}
		_, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File is required"})
			return
		}
		f.uploads["file"] = hdr.Filename
		pr.ProformaFile = "/media/proformas/" + hdr.Filename
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("PATCH /api/requests/{id}/update_payment_status/{$}", withRequest(func(w http.ResponseWriter, r *http.Request, pr *model.PurchaseRequest) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad form"})
			return
		}
		pr.PaymentStatus = r.FormValue("payment_status")
		if _, hdr, err := r.FormFile("payment_proof"); err == nil {
			f.uploads["payment_proof"] = hdr.Filename
			pr.PaymentProof = "/media/proofs/" + hdr.Filename
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	mux.HandleFunc("GET /api/po/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"count": len(f.pos), "results": f.pos})
	})
	mux.HandleFunc("GET /api/po/{id}/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, po := range f.pos {
			if po.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, po)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	mux.HandleFunc("POST /api/auth/login/{$}", func(w http.ResponseWriter, r *http.Request) {
		var creds client.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, model.AuthResponse{
			Access:  "access-" + creds.Username,
			Refresh: "refresh-" + creds.Username,
			User:    model.User{ID: "u-" + creds.Username, Username: creds.Username, Role: model.RoleApproverLevel1},
		})
	})
	mux.HandleFunc("POST /api/auth/refresh/{$}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Refresh == "revoked" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, client.TokenPair{Access: "access-rotated"})
	})
	mux.HandleFunc("PUT /api/auth/profile/{$}", func(w http.ResponseWriter, r *http.Request) {
		var in client.ProfileUpdate
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, model.User{ID: "u-ann", Username: "ann", FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Role: model.RoleApproverLevel1})
	})
	mux.HandleFunc("POST /api/auth/change-password/{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.calls = append(f.calls, key)
		status, failing := f.fail[key]
		f.mu.Unlock()
		if failing {
			writeJSON(w, status, map[string]string{"error": "backend refused"})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	backend   *fakeBackend
	api       *client.Client
	db        *gorm.DB
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	sessions  *session.Manager
	events    *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		backend:   backend,
		api:       client.New(srv.URL+"/api", srv.Client()),
		db:        db,
		auditRepo: repository.NewAuditRepository(db),
		txManager: repository.NewTransactionManager(db),
		sessions:  session.NewManager(repository.NewSessionRepository(db), time.Hour, zerolog.Nop()),
		events:    &recordingPublisher{},
	}
}

func (e *testEnv) requests() RequestService {
	return NewRequestService(e.api, e.auditRepo, e.events, zerolog.Nop())
}

func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	logs, _, err := e.auditRepo.List(context.Background(), repository.AuditFilter{}, 1, 100)
	require.NoError(t, err)
	out := make([]string, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, logs[i].Action)
	}
	return out
}

// as returns a context authenticated as userID with role.
func as(userID, role string) context.Context {
	return session.WithSession(context.Background(), &session.Session{
		Token:        "tok-" + userID,
		User:         model.User{ID: userID, Username: userID, Role: role},
		AccessToken:  "access-" + userID,
		Capabilities: lifecycle.CapabilitiesFor(role),
		ExpiresAt:    time.Now().Add(time.Hour),
	})
}

func pendingRequest(id string) model.PurchaseRequest {
	return model.PurchaseRequest{
		ID:                     id,
		Title:                  "Request " + id,
		Status:                 model.StatusPending,
		PaymentStatus:          model.PaymentPending,
		CreatedBy:              "u-staff",
		ClarificationRequested: model.Bool(false),
		ReceiptRequired:        model.Bool(true),
		ReceiptSubmitted:       model.Bool(false),
	}
}
