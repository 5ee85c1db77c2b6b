package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// Loans returns copies of every loan, oldest first.
func (s *Server) Loans() []domain.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Loan, len(s.loans))
	for i, l := range s.loans {
		out[i] = *l
	}
	return out
}

// FailReminder makes every reminder for loanID fail with reason.
func (s *Server) FailReminder(loanID int64, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReminders[loanID] = reason
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QRCode    string           `json:"qr_code"`
		MemberID  int64            `json:"member_id"`
		BookState domain.Condition `json:"book_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookByQRLocked(body.QRCode)
	if b == nil {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	if b.Borrowed() {
		writeError(w, http.StatusBadRequest, "Book is already borrowed")
		return
	}
	m, ok := s.members[body.MemberID]
	if !ok {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if body.BookState == "" {
		body.BookState = b.DeliveryStatus
	}

	s.nextLoan++
	s.loans = append(s.loans, &domain.Loan{
		ID:           s.nextLoan,
		BookID:       b.ID,
		QRCode:       b.QRCode,
		BookTitle:    b.Title,
		MemberID:     m.ID,
		BorrowerName: m.KidName,
		BookState:    body.BookState,
		BorrowedAt:   domain.NewTimestamp(s.now()),
	})
	b.LoanStatus = domain.LoanStatusBorrowed
	b.BorrowingChild = m.KidName
	b.DeliveryStatus = body.BookState
	m.BorrowedBooksCount++

	writeJSON(w, http.StatusOK, map[string]string{"message": "Book borrowed successfully"})
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QRCode string `json:"qr_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookByQRLocked(body.QRCode)
	if b == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Book not found"})
		return
	}
	if !b.Borrowed() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Book is not borrowed"})
		return
	}

	for _, l := range s.loans {
		if l.BookID == b.ID && l.Open() {
			l.ReturnedAt = domain.NewTimestamp(s.now())
			if m, ok := s.members[l.MemberID]; ok && m.BorrowedBooksCount > 0 {
				m.BorrowedBooksCount--
			}
		}
	}
	b.LoanStatus = domain.LoanStatusAvailable
	b.BorrowingChild = ""

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleLoanHistory answers with every matching loan when show_all is true,
// otherwise with the latest loan of each book.
func (s *Server) handleLoanHistory(w http.ResponseWriter, r *http.Request) {
	qr := r.URL.Query().Get("qr_code")
	showAll := r.URL.Query().Get("show_all") == "true"

	s.mu.Lock()
	var matched []domain.Loan
	for _, l := range s.loans {
		if qr == "" || l.QRCode == qr {
			matched = append(matched, *l)
		}
	}
	s.mu.Unlock()

	if !showAll {
		latest := make(map[int64]domain.Loan)
		for _, l := range matched {
			if cur, ok := latest[l.BookID]; !ok || l.ID > cur.ID {
				latest[l.BookID] = l
			}
		}
		matched = matched[:0]
		for _, l := range latest {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	if matched == nil {
		matched = []domain.Loan{}
	}
	writeJSON(w, http.StatusOK, matched)
}

func (s *Server) handleOpenLoans(w http.ResponseWriter, r *http.Request) {
	qr := r.URL.Query().Get("qr_code")

	s.mu.Lock()
	out := []domain.Loan{}
	for _, l := range s.loans {
		if l.Open() && (qr == "" || l.QRCode == qr) {
			out = append(out, *l)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LoanID  int64  `json:"loan_id"`
		Subject string `json:"subject"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if reason, ok := s.failReminders[body.LoanID]; ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": reason})
		return
	}
	var loan *domain.Loan
	for _, l := range s.loans {
		if l.ID == body.LoanID {
			loan = l
		}
	}
	if loan == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Loan not found"})
		return
	}
	if !loan.Open() {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Loan already returned"})
		return
	}

	s.nextReminder++
	s.reminders = append(s.reminders, &domain.Reminder{
		ID:     s.nextReminder,
		LoanID: loan.ID,
		SentAt: domain.NewTimestamp(s.now()),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// reminderWire renders sent_at the way Flask serialises datetimes.
type reminderWire struct {
	LoanID int64   `json:"loan_id"`
	SentAt *string `json:"sent_at"`
}

func (s *Server) lastReminderLocked(loanID int64) *reminderWire {
	var last *domain.Reminder
	for _, rem := range s.reminders {
		if rem.LoanID == loanID && (last == nil || !rem.SentAt.Before(last.SentAt.Time)) {
			last = rem
		}
	}
	out := &reminderWire{LoanID: loanID}
	if last != nil {
		ts := last.SentAt.UTC().Format(http.TimeFormat)
		out.SentAt = &ts
	}
	return out
}

func (s *Server) handleLastReminder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["loan_id"], 10, 64)
	s.mu.Lock()
	out := s.lastReminderLocked(id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLastReminders(w http.ResponseWriter, r *http.Request) {
	out := []*reminderWire{}
	s.mu.Lock()
	for _, raw := range r.URL.Query()["loan_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if rem := s.lastReminderLocked(id); rem.SentAt != nil {
			out = append(out, rem)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}
