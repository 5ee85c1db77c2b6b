package loans

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
)

// ReloadHistory fetches the loan history for the current selection and
// show-all flag, merges each loan's latest reminder and sorts it. On failure
// the history is cleared.
func (w *Workflow) ReloadHistory(ctx context.Context) error {
	w.mu.Lock()
	qr, showAll := w.selectedQRLocked(), w.showAll
	w.mu.Unlock()

	loans, err := w.lib.LoanHistory(ctx, qr, showAll)
	if err == nil {
		err = w.mergeReminders(ctx, loans)
	}
	if err != nil {
		w.mu.Lock()
		w.history = nil
		w.mu.Unlock()
		return err
	}
	SortLoans(loans)

	w.mu.Lock()
	w.history = loans
	w.mu.Unlock()
	return nil
}

// mergeReminders fills LastReminderDate. It uses the batch lookup when the
// client and server support it and one lookup per loan otherwise.
func (w *Workflow) mergeReminders(ctx context.Context, loans []domain.Loan) error {
	if len(loans) == 0 {
		return nil
	}
	ids := make([]int64, len(loans))
	for i := range loans {
		ids[i] = loans[i].ID
	}

	last, err := w.lib.LastReminders(ctx, ids)
	switch {
	case err == nil:
		for i := range loans {
			loans[i].LastReminderDate = last[loans[i].ID]
		}
		return nil
	case !errors.Is(err, library.ErrUnsupported):
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i := range loans {
		l := &loans[i]
		g.Go(func() error {
			ts, err := w.lib.LastReminder(gctx, l.ID)
			if err != nil {
				return err
			}
			l.LastReminderDate = ts
			return nil
		})
	}
	return g.Wait()
}

// SortLoans puts open loans before closed ones and, within each group, the
// most recently started loan first. Loans without a start time go last.
func SortLoans(loans []domain.Loan) {
	sort.SliceStable(loans, func(i, j int) bool {
		a, b := &loans[i], &loans[j]
		if a.Open() != b.Open() {
			return a.Open()
		}
		return startedAfter(a, b)
	})
}

func startedAfter(a, b *domain.Loan) bool {
	switch {
	case a.BorrowedAt == nil || a.BorrowedAt.IsZero():
		return false
	case b.BorrowedAt == nil || b.BorrowedAt.IsZero():
		return true
	default:
		return a.BorrowedAt.After(b.BorrowedAt.Time)
	}
}
