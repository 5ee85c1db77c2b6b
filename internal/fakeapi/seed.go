package fakeapi

import (
	"fmt"
	"time"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// Lend records a loan of qr to memberID started at at, bypassing HTTP.
// A zero returnedAt leaves the loan open.
func (s *Server) Lend(qr string, memberID int64, at, returnedAt time.Time) (domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bookByQRLocked(qr)
	if b == nil {
		return domain.Loan{}, fmt.Errorf("no book %q", qr)
	}
	m, ok := s.members[memberID]
	if !ok {
		return domain.Loan{}, fmt.Errorf("no member %d", memberID)
	}
	if b.Borrowed() && returnedAt.IsZero() {
		return domain.Loan{}, fmt.Errorf("book %q already borrowed", qr)
	}

	s.nextLoan++
	l := &domain.Loan{
		ID:           s.nextLoan,
		BookID:       b.ID,
		QRCode:       b.QRCode,
		BookTitle:    b.Title,
		MemberID:     m.ID,
		BorrowerName: m.KidName,
		BookState:    b.DeliveryStatus,
		BorrowedAt:   domain.NewTimestamp(at),
	}
	if returnedAt.IsZero() {
		b.LoanStatus = domain.LoanStatusBorrowed
		b.BorrowingChild = m.KidName
		m.BorrowedBooksCount++
	} else {
		l.ReturnedAt = domain.NewTimestamp(returnedAt)
	}
	s.loans = append(s.loans, l)
	return *l, nil
}

// Seed fills the server with a small demo library and the user
// librarian/librarian.
func (s *Server) Seed() {
	s.AddUser("librarian", "librarian")

	dana := s.AddMember(domain.Member{ParentName: "Rivka Cohen", KidName: "Dana", Email: "rivka@example.org"})
	noam := s.AddMember(domain.Member{ParentName: "Yossi Levi", KidName: "Noam", Email: "yossi@example.org"})
	s.AddMember(domain.Member{ParentName: "Miriam Mizrahi", KidName: "Tamar"})

	books := []domain.Book{
		{Title: "הזחל הרעב", Author: "אריק קארל", CoverType: domain.CoverHard, Condition: domain.ConditionGood, Pages: 26, Year: 1969, RecommendedAge: "2-5"},
		{Title: "איה פלוטו", Author: "לאה גולדברג", CoverType: domain.CoverSoft, Condition: domain.ConditionWorn, Pages: 32, Year: 1957, RecommendedAge: "3-6"},
		{Title: "הכבש השישה עשר", Author: "יהונתן גפן", CoverType: domain.CoverHard, Condition: domain.ConditionNew, Pages: 64, Year: 1978, RecommendedAge: "4-8"},
		{Title: "Where the Wild Things Are", Author: "Maurice Sendak", CoverType: domain.CoverHard, Condition: domain.ConditionGood, Pages: 48, Year: 1963, RecommendedAge: "4-8"},
		{Title: "מוצאים את נמו", Author: "דיסני", CoverType: domain.CoverBattery, Condition: domain.ConditionWorn, Pages: 12, RecommendedAge: "1-3"},
		{Title: "דירה להשכיר", Author: "לאה גולדברג", CoverType: domain.CoverRigid, Condition: domain.ConditionGood, Pages: 20, Year: 1948, RecommendedAge: "2-6"},
	}
	var stored []domain.Book
	for _, b := range books {
		stored = append(stored, s.AddBook(b))
	}

	now := s.now()
	_, _ = s.Lend(stored[0].QRCode, dana.ID, now.AddDate(0, 0, -30), now.AddDate(0, 0, -20))
	_, _ = s.Lend(stored[0].QRCode, noam.ID, now.AddDate(0, 0, -10), time.Time{})
	_, _ = s.Lend(stored[2].QRCode, dana.ID, now.AddDate(0, 0, -3), time.Time{})
}
