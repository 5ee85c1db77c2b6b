package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// AddBook stores b, assigning an ID and QR code when they are empty.
func (s *Server) AddBook(b domain.Book) domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addBookLocked(b)
}

func (s *Server) addBookLocked(b domain.Book) domain.Book {
	if b.ID == 0 {
		s.nextBook++
		b.ID = s.nextBook
	} else if b.ID > s.nextBook {
		s.nextBook = b.ID
	}
	if b.QRCode == "" {
		b.QRCode = fmt.Sprintf("LIB-%05d", b.ID)
	}
	if b.LoanStatus == "" {
		b.LoanStatus = domain.LoanStatusAvailable
	}
	if b.Condition == "" {
		b.Condition = domain.DefaultCondition
	}
	if b.DeliveryStatus == "" {
		b.DeliveryStatus = b.Condition
	}
	cp := b
	s.books[b.ID] = &cp
	return b
}

// Book returns the stored copy of the book with qr.
func (s *Server) Book(qr string) (domain.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.bookByQRLocked(qr); b != nil {
		return *b, true
	}
	return domain.Book{}, false
}

func (s *Server) bookByQRLocked(qr string) *domain.Book {
	for _, b := range s.books {
		if b.QRCode == qr {
			return b
		}
	}
	return nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	desc := r.URL.Query().Get("order_by") != "asc"
	s.mu.Lock()
	books := sortedBooks(s.books, desc)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleAvailableBooks(w http.ResponseWriter, r *http.Request) {
	s.writeBooksWithStatus(w, domain.LoanStatusAvailable)
}

func (s *Server) handleBorrowedBooks(w http.ResponseWriter, r *http.Request) {
	s.writeBooksWithStatus(w, domain.LoanStatusBorrowed)
}

func (s *Server) writeBooksWithStatus(w http.ResponseWriter, status domain.LoanStatus) {
	s.mu.Lock()
	all := sortedBooks(s.books, false)
	s.mu.Unlock()

	out := []domain.Book{}
	for _, b := range all {
		if b.LoanStatus == status {
			out = append(out, b)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBookByQR(w http.ResponseWriter, r *http.Request) {
	qr := mux.Vars(r)["qr"]
	s.mu.Lock()
	b := s.bookByQRLocked(qr)
	var out domain.Book
	if b != nil {
		out = *b
	}
	s.mu.Unlock()
	if b == nil {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// bookBody mirrors the add and edit forms, which send numbers as strings.
type bookBody struct {
	Title            string            `json:"title"`
	Author           string            `json:"author"`
	Description      string            `json:"description"`
	Year             domain.FlexInt    `json:"year_of_publication"`
	Pages            domain.FlexInt    `json:"pages"`
	CoverType        domain.CoverType  `json:"cover_type"`
	Condition        domain.Condition  `json:"book_condition"`
	RecommendedAge   string            `json:"recommended_age"`
	LoanStatus       domain.LoanStatus `json:"loan_status"`
	DeliveringParent string            `json:"delivering_parent"`
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var body bookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if body.Title == "" || body.Author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	s.mu.Lock()
	b := s.addBookLocked(domain.Book{
		Title:            body.Title,
		Author:           body.Author,
		Description:      body.Description,
		Year:             body.Year,
		Pages:            body.Pages,
		CoverType:        body.CoverType,
		Condition:        body.Condition,
		RecommendedAge:   body.RecommendedAge,
		DeliveringParent: body.DeliveringParent,
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var body bookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	b.Title = body.Title
	b.Author = body.Author
	b.Description = body.Description
	b.Year = body.Year
	b.Pages = body.Pages
	b.CoverType = body.CoverType
	b.Condition = body.Condition
	b.RecommendedAge = body.RecommendedAge
	b.DeliveringParent = body.DeliveringParent
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book updated"})
}

func (s *Server) handleQRCatalog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	books := sortedBooks(s.books, false)
	s.mu.Unlock()

	out := make([]domain.CatalogEntry, 0, len(books))
	for _, b := range books {
		out = append(out, domain.CatalogEntry{ID: b.ID, QRCode: b.QRCode, Title: b.Title})
	}
	writeJSON(w, http.StatusOK, out)
}
