package loans

import "github.com/vbonduro/librarydesk/internal/domain"

// Selection is a snapshot of what the operator has picked.
type Selection struct {
	Book         *domain.Book
	Borrower     *domain.Member
	Condition    domain.Condition
	ReturnTarget *domain.Book
}

func (w *Workflow) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

func (w *Workflow) ShowAll() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.showAll
}

func (w *Workflow) Selection() Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Selection{
		Book:         w.book,
		Borrower:     w.borrower,
		Condition:    w.condition,
		ReturnTarget: w.returnTarget,
	}
}

func (w *Workflow) Members() []domain.Member {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Member(nil), w.members...)
}

func (w *Workflow) AvailableBooks() []domain.Book {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Book(nil), w.available...)
}

func (w *Workflow) BorrowedBooks() []domain.Book {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Book(nil), w.borrowed...)
}

// History returns a copy of the sorted loan history.
func (w *Workflow) History() []domain.Loan {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Loan(nil), w.history...)
}
