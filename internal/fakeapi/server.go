// Package fakeapi is an in-memory library server speaking the same REST API
// as the production backend. Tests and the sandbox command run the client
// against it.
package fakeapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/vbonduro/librarydesk/internal/domain"
)

type Option func(*Server)

// WithClock fixes the time used for loans, reminders and tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithBatchReminders serves GET /api/reminders/last with loan_id filters.
func WithBatchReminders() Option {
	return func(s *Server) { s.batchReminders = true }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

type Server struct {
	router         *mux.Router
	logger         *slog.Logger
	now            func() time.Time
	secret         []byte
	tokenTTL       time.Duration
	batchReminders bool

	mu             sync.Mutex
	users          map[string]string
	books          map[int64]*domain.Book
	members        map[int64]*domain.Member
	loans          []*domain.Loan
	reminders      []*domain.Reminder
	failReminders  map[int64]string
	generation     int
	hits           map[string]int
	lastReportArgs map[string]string
	nextBook       int64
	nextMember     int64
	nextLoan       int64
	nextReminder   int64
}

func New(opts ...Option) *Server {
	s := &Server{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		secret:        []byte("fakeapi-signing-key"),
		tokenTTL:      12 * time.Hour,
		users:         make(map[string]string),
		books:         make(map[int64]*domain.Book),
		members:       make(map[int64]*domain.Member),
		failReminders: make(map[int64]string),
		hits:          make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.countHits)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods("POST").Name("login")
	api.HandleFunc("/health", s.handleHealth).Methods("GET").Name("health")
	api.HandleFunc("/db-status", s.handleDBStatus).Methods("GET").Name("db-status")

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireToken)

	authed.HandleFunc("/members", s.handleListMembers).Methods("GET").Name("members")
	authed.HandleFunc("/members", s.handleAddMember).Methods("POST").Name("add-member")
	authed.HandleFunc("/members/{id:[0-9]+}", s.handleUpdateMember).Methods("PUT").Name("update-member")
	authed.HandleFunc("/members/{id:[0-9]+}", s.handleDeleteMember).Methods("DELETE").Name("delete-member")
	authed.HandleFunc("/members/{id:[0-9]+}/loans", s.handleMemberLoans).Methods("GET").Name("member-loans")

	authed.HandleFunc("/books", s.handleListBooks).Methods("GET").Name("books")
	authed.HandleFunc("/books", s.handleAddBook).Methods("POST").Name("add-book")
	authed.HandleFunc("/books/qr_catalog", s.handleQRCatalog).Methods("GET").Name("qr-catalog")
	authed.HandleFunc("/books/{id:[0-9]+}", s.handleUpdateBook).Methods("PUT").Name("update-book")
	authed.HandleFunc("/available_books", s.handleAvailableBooks).Methods("GET").Name("available-books")
	authed.HandleFunc("/borrowed_books", s.handleBorrowedBooks).Methods("GET").Name("borrowed-books")
	authed.HandleFunc("/book/borrow", s.handleBorrow).Methods("POST").Name("borrow")
	authed.HandleFunc("/book/return", s.handleReturn).Methods("POST").Name("return")
	authed.HandleFunc("/book/{qr}", s.handleBookByQR).Methods("GET").Name("book-by-qr")

	authed.HandleFunc("/loans/history", s.handleLoanHistory).Methods("GET").Name("loan-history")
	authed.HandleFunc("/open_loans", s.handleOpenLoans).Methods("GET").Name("open-loans")
	authed.HandleFunc("/send-reminder", s.handleSendReminder).Methods("POST").Name("send-reminder")
	authed.HandleFunc("/reminders/last/{loan_id:[0-9]+}", s.handleLastReminder).Methods("GET").Name("last-reminder")
	if s.batchReminders {
		authed.HandleFunc("/reminders/last", s.handleLastReminders).Methods("GET").Name("last-reminders")
	}

	authed.HandleFunc("/generate_inventory_report", s.handleInventoryReport).Methods("GET").Name("inventory-report")
	authed.HandleFunc("/generate_books_report", s.handleLoansReport).Methods("GET").Name("loans-report")
	authed.HandleFunc("/generate_qr_pdf", s.handleQRSheetRange).Methods("GET").Name("qr-sheet-range")
	authed.HandleFunc("/generate_qr_pdf", s.handleQRSheetSelection).Methods("POST").Name("qr-sheet-selection")
	return r
}

// Hits returns how many requests matched the named route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			s.mu.Lock()
			s.hits[route.GetName()]++
			s.mu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// IssueToken signs a token for username as the login endpoint would.
func (s *Server) IssueToken(username string) string {
	now := s.now()
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{jwt.RegisteredClaims{
		ID:        strconv.Itoa(gen),
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}}).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return tok
}

// RevokeTokens invalidates every token issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var claims tokenClaims
		_, err := jwt.ParseWithClaims(r.Header.Get("Authorization"), &claims,
			func(*jwt.Token) (any, error) { return s.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.now),
		)
		if err == nil {
			s.mu.Lock()
			revoked := claims.ID != strconv.Itoa(s.generation)
			s.mu.Unlock()
			if revoked {
				err = errors.New("token revoked")
			}
		}
		if err != nil {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Token is invalid or expired"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	s.mu.Lock()
	want, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || want != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.IssueToken(req.Username)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDBStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func sortedBooks(books map[int64]*domain.Book, desc bool) []domain.Book {
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
