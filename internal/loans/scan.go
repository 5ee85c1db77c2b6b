package loans

import (
	"context"
	"fmt"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/labels"
)

// ScanResult describes the book behind a scanned code.
type ScanResult struct {
	Book domain.Book
	// Loan is the open loan of a borrowed book, nil when the history has
	// none.
	Loan *domain.Loan
	// Selected reports whether the book became the selection of the current
	// mode.
	Selected bool
	// Condition is the default handoff condition taken from the book.
	Condition domain.Condition
}

// Describe renders the availability line shown after a scan.
func (r *ScanResult) Describe(l labels.Labels) string {
	if !r.Book.Borrowed() {
		return fmt.Sprintf(l.Get("book_available"), r.Book.Title)
	}
	if r.Loan == nil {
		return fmt.Sprintf(l.Get("book_borrowed_unknown"), r.Book.Title)
	}
	return fmt.Sprintf(l.Get("book_borrowed_by"), r.Book.Title, r.Loan.BorrowerName, r.Loan.BorrowedAt.String())
}

// Scan looks up a decoded QR code and, when the book fits the current mode,
// selects it. A borrowed book is described with its current loan.
func (w *Workflow) Scan(ctx context.Context, qr string) (*ScanResult, error) {
	book, err := w.lib.BookByQR(ctx, qr)
	if err != nil {
		return nil, err
	}
	res := &ScanResult{Book: *book, Condition: defaultCondition(book)}

	if book.Borrowed() {
		loan, err := w.lib.CurrentLoan(ctx, book.QRCode)
		if err != nil {
			return nil, err
		}
		res.Loan = loan
	}

	w.mu.Lock()
	switch {
	case w.mode == ModeBorrow && !book.Borrowed():
		b := *book
		w.book = &b
		w.condition = res.Condition
		res.Selected = true
	case w.mode == ModeReturn && book.Borrowed():
		b := *book
		w.returnTarget = &b
		res.Selected = true
	}
	w.mu.Unlock()

	if res.Selected {
		return res, w.ReloadHistory(ctx)
	}
	return res, nil
}
