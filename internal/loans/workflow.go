// Package loans drives the borrow/return desk: reference data, selections,
// loan history and bulk reminders, kept in sync with the library server.
package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
)

type Mode string

const (
	ModeNone   Mode = ""
	ModeBorrow Mode = "borrow"
	ModeReturn Mode = "return"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeBorrow, ModeReturn:
		return Mode(s), nil
	}
	return ModeNone, fmt.Errorf("unknown mode %q", s)
}

var (
	ErrNothingSelected = errors.New("nothing selected")
	ErrWrongMode       = errors.New("not allowed in the current mode")
	ErrBookUnavailable = errors.New("book is not available")
	ErrBookNotBorrowed = errors.New("book is not borrowed")
	ErrUnknownMember   = errors.New("unknown member")
	ErrUnknownLoan     = errors.New("unknown loan")
	ErrLoanClosed      = errors.New("loan already returned")
	// ErrBookMissing means an open loan points at a book that is not in the
	// borrowed list.
	ErrBookMissing = errors.New("book of loan not found")
	// ErrReloadFailed wraps a refresh error that followed a committed borrow
	// or return. The mutation itself succeeded.
	ErrReloadFailed = errors.New("saved, but refreshing the lists failed")
)

// Library is the part of the library client the workflow calls.
type Library interface {
	Members(ctx context.Context) ([]domain.Member, error)
	AvailableBooks(ctx context.Context) ([]domain.Book, error)
	BorrowedBooks(ctx context.Context) ([]domain.Book, error)
	BookByQR(ctx context.Context, qr string) (*domain.Book, error)
	Borrow(ctx context.Context, qr string, memberID int64, state domain.Condition) (string, error)
	Return(ctx context.Context, qr string) error
	LoanHistory(ctx context.Context, qr string, showAll bool) ([]domain.Loan, error)
	CurrentLoan(ctx context.Context, qr string) (*domain.Loan, error)
	SendReminder(ctx context.Context, loanID int64, subject string, details library.LoanDetails) error
	LastReminder(ctx context.Context, loanID int64) (*domain.Timestamp, error)
	LastReminders(ctx context.Context, loanIDs []int64) (map[int64]*domain.Timestamp, error)
}

type Options struct {
	ReminderSubject string
	// Concurrency bounds the reminder fan-out and the per-loan lookups.
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Workflow is the loan desk state. Methods are meant to be called from one
// goroutine; the lock only covers the fan-out helpers.
type Workflow struct {
	lib         Library
	logger      *slog.Logger
	subject     string
	concurrency int
	now         func() time.Time

	mu        sync.Mutex
	mode      Mode
	showAll   bool
	members   []domain.Member
	available []domain.Book
	borrowed  []domain.Book
	history   []domain.Loan

	book         *domain.Book
	borrower     *domain.Member
	condition    domain.Condition
	returnTarget *domain.Book
	reminderSel  map[int64]bool
}

func New(lib Library, opts Options) *Workflow {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workflow{
		lib:         lib,
		logger:      opts.Logger,
		subject:     opts.ReminderSubject,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		reminderSel: make(map[int64]bool),
	}
}

// Load fetches members, available books and borrowed books in parallel. The
// lists are replaced only when all three calls succeed.
func (w *Workflow) Load(ctx context.Context) error {
	var (
		members             []domain.Member
		available, borrowed []domain.Book
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		members, err = w.lib.Members(gctx)
		return err
	})
	g.Go(func() (err error) {
		available, err = w.lib.AvailableBooks(gctx)
		return err
	})
	g.Go(func() (err error) {
		borrowed, err = w.lib.BorrowedBooks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.members, w.available, w.borrowed = members, available, borrowed
	w.mu.Unlock()
	return nil
}

// reload refreshes both book lists and the history in parallel.
func (w *Workflow) reload(ctx context.Context) error {
	var available, borrowed []domain.Book
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		available, err = w.lib.AvailableBooks(gctx)
		return err
	})
	g.Go(func() (err error) {
		borrowed, err = w.lib.BorrowedBooks(gctx)
		return err
	})
	g.Go(func() error {
		return w.ReloadHistory(gctx)
	})
	err := g.Wait()
	if available != nil || borrowed != nil {
		w.mu.Lock()
		if available != nil {
			w.available = available
		}
		if borrowed != nil {
			w.borrowed = borrowed
		}
		w.mu.Unlock()
	}
	return err
}

// SetMode switches between borrow and return. Every selection is cleared and
// the history is reloaded for the new mode.
func (w *Workflow) SetMode(ctx context.Context, m Mode) error {
	w.mu.Lock()
	w.mode = m
	w.clearSelectionLocked()
	w.mu.Unlock()
	return w.ReloadHistory(ctx)
}

func (w *Workflow) clearSelectionLocked() {
	w.book = nil
	w.borrower = nil
	w.condition = ""
	w.returnTarget = nil
	w.reminderSel = make(map[int64]bool)
}

func (w *Workflow) SetShowAll(ctx context.Context, showAll bool) error {
	w.mu.Lock()
	changed := w.showAll != showAll
	w.showAll = showAll
	w.mu.Unlock()
	if !changed {
		return nil
	}
	return w.ReloadHistory(ctx)
}

// SelectedQR is the QR the history is narrowed to: the book picked for
// borrowing or the return target, depending on the mode.
func (w *Workflow) SelectedQR() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedQRLocked()
}

func (w *Workflow) selectedQRLocked() string {
	switch w.mode {
	case ModeBorrow:
		if w.book != nil {
			return w.book.QRCode
		}
	case ModeReturn:
		if w.returnTarget != nil {
			return w.returnTarget.QRCode
		}
	}
	return ""
}

func (w *Workflow) SelectBorrower(memberID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mode != ModeBorrow {
		return ErrWrongMode
	}
	m := findMember(w.members, memberID)
	if m == nil {
		return fmt.Errorf("%w: %d", ErrUnknownMember, memberID)
	}
	w.borrower = m
	return nil
}

// SelectBook picks a book by QR for the current mode: an available book when
// borrowing, a borrowed one when returning.
func (w *Workflow) SelectBook(ctx context.Context, qr string) error {
	w.mu.Lock()
	if err := w.selectLocked(qr); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	return w.ReloadHistory(ctx)
}

func (w *Workflow) selectLocked(qr string) error {
	switch w.mode {
	case ModeBorrow:
		b := findBook(w.available, qr)
		if b == nil {
			return fmt.Errorf("%w: %s", ErrBookUnavailable, qr)
		}
		w.book = b
		if w.condition == "" {
			w.condition = defaultCondition(b)
		}
	case ModeReturn:
		b := findBook(w.borrowed, qr)
		if b == nil {
			return fmt.Errorf("%w: %s", ErrBookNotBorrowed, qr)
		}
		w.returnTarget = b
	default:
		return ErrWrongMode
	}
	return nil
}

func (w *Workflow) SetCondition(c domain.Condition) error {
	if !domain.ValidCondition(c) {
		return fmt.Errorf("unknown condition %q", c)
	}
	w.mu.Lock()
	w.condition = c
	w.mu.Unlock()
	return nil
}

// Borrow lends the selected book to the selected member. On success the form
// is reset and the lists and history are reloaded before returning. A failed
// reload is reported as ErrReloadFailed alongside the server message.
func (w *Workflow) Borrow(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.mode != ModeBorrow {
		w.mu.Unlock()
		return "", ErrWrongMode
	}
	if w.book == nil || w.borrower == nil || w.condition == "" {
		w.mu.Unlock()
		return "", ErrNothingSelected
	}
	qr, memberID, state := w.book.QRCode, w.borrower.ID, w.condition
	w.mu.Unlock()

	msg, err := w.lib.Borrow(ctx, qr, memberID, state)
	if err != nil {
		return "", err
	}
	w.logger.Info("book borrowed", "qr_code", qr, "member_id", memberID)

	w.mu.Lock()
	w.book, w.borrower, w.condition = nil, nil, ""
	w.mu.Unlock()
	if err := w.reload(ctx); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return msg, nil
}

// Return takes back the return target. On success the selection is cleared
// and the lists and history are reloaded; see Borrow for ErrReloadFailed.
func (w *Workflow) Return(ctx context.Context) error {
	w.mu.Lock()
	if w.mode != ModeReturn {
		w.mu.Unlock()
		return ErrWrongMode
	}
	if w.returnTarget == nil {
		w.mu.Unlock()
		return ErrNothingSelected
	}
	qr := w.returnTarget.QRCode
	w.mu.Unlock()

	if err := w.lib.Return(ctx, qr); err != nil {
		return err
	}
	w.logger.Info("book returned", "qr_code", qr)

	w.mu.Lock()
	w.returnTarget = nil
	w.mu.Unlock()
	if err := w.reload(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

// SelectLoan handles a click on a loan card. An open loan selects its book
// for return, switching to return mode if needed; closed loans are ignored
// and reported with false.
func (w *Workflow) SelectLoan(ctx context.Context, loanID int64) (bool, error) {
	w.mu.Lock()
	loan := findLoan(w.history, loanID)
	if loan == nil {
		w.mu.Unlock()
		return false, fmt.Errorf("%w: %d", ErrUnknownLoan, loanID)
	}
	if !loan.Open() {
		w.mu.Unlock()
		return false, nil
	}
	b := findBook(w.borrowed, loan.QRCode)
	if b == nil {
		w.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrBookMissing, loan.QRCode)
	}
	if w.mode != ModeReturn {
		w.mode = ModeReturn
		w.clearSelectionLocked()
	}
	w.returnTarget = b
	w.mu.Unlock()
	return true, w.ReloadHistory(ctx)
}

func defaultCondition(b *domain.Book) domain.Condition {
	if domain.ValidCondition(b.DeliveryStatus) {
		return b.DeliveryStatus
	}
	if domain.ValidCondition(b.Condition) {
		return b.Condition
	}
	return domain.DefaultCondition
}

func findMember(ms []domain.Member, id int64) *domain.Member {
	for i := range ms {
		if ms[i].ID == id {
			m := ms[i]
			return &m
		}
	}
	return nil
}

func findBook(bs []domain.Book, qr string) *domain.Book {
	for i := range bs {
		if bs[i].QRCode == qr {
			b := bs[i]
			return &b
		}
	}
	return nil
}

func findLoan(ls []domain.Loan, id int64) *domain.Loan {
	for i := range ls {
		if ls[i].ID == id {
			return &ls[i]
		}
	}
	return nil
}
