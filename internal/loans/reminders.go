package loans

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
)

// ToggleReminder adds or removes an open loan from the reminder selection
// and reports whether it is now selected.
func (w *Workflow) ToggleReminder(loanID int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l := findLoan(w.history, loanID)
	if l == nil {
		return false, fmt.Errorf("%w: %d", ErrUnknownLoan, loanID)
	}
	if !l.Open() {
		return false, fmt.Errorf("%w: %d", ErrLoanClosed, loanID)
	}
	if w.reminderSel[loanID] {
		delete(w.reminderSel, loanID)
		return false, nil
	}
	w.reminderSel[loanID] = true
	return true, nil
}

// SelectAllOpen selects every open loan of the current history.
func (w *Workflow) SelectAllOpen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, l := range w.history {
		if l.Open() {
			w.reminderSel[l.ID] = true
		}
	}
	return len(w.reminderSel)
}

func (w *Workflow) SelectedReminders() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]int64, 0, len(w.reminderSel))
	for id := range w.reminderSel {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type ReminderFailure struct {
	LoanID       int64
	BorrowerName string
	Reason       string
}

// ReminderReport tallies one bulk send.
type ReminderReport struct {
	Sent     int
	Failures []ReminderFailure
}

func (r *ReminderReport) Failed() int {
	return len(r.Failures)
}

// SendReminders sends one reminder per selected loan, concurrently and
// independently. Each success stamps the loan locally at once and is then
// replaced by the server's value. The selection is cleared afterwards.
func (w *Workflow) SendReminders(ctx context.Context) (*ReminderReport, error) {
	w.mu.Lock()
	var targets []domain.Loan
	for _, l := range w.history {
		if w.reminderSel[l.ID] {
			targets = append(targets, l)
		}
	}
	w.mu.Unlock()
	if len(targets) == 0 {
		return nil, ErrNothingSelected
	}

	var (
		mu     sync.Mutex
		report ReminderReport
	)
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)
	for _, l := range targets {
		g.Go(func() error {
			err := w.lib.SendReminder(ctx, l.ID, w.subject, library.DetailsOf(&l))
			if err != nil {
				w.logger.Warn("reminder failed", "loan_id", l.ID, "error", err)
				mu.Lock()
				report.Failures = append(report.Failures, ReminderFailure{
					LoanID:       l.ID,
					BorrowerName: l.BorrowerName,
					Reason:       failureReason(err),
				})
				mu.Unlock()
				return nil
			}

			w.patchReminder(l.ID, domain.NewTimestamp(w.now()))
			mu.Lock()
			report.Sent++
			mu.Unlock()

			ts, err := w.lib.LastReminder(ctx, l.ID)
			if err != nil {
				w.logger.Warn("failed to confirm reminder", "loan_id", l.ID, "error", err)
				return nil
			}
			if ts != nil {
				w.patchReminder(l.ID, ts)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].LoanID < report.Failures[j].LoanID })
	w.mu.Lock()
	w.reminderSel = make(map[int64]bool)
	w.mu.Unlock()

	w.logger.Info("reminders sent", "sent", report.Sent, "failed", report.Failed())
	return &report, nil
}

func (w *Workflow) patchReminder(loanID int64, ts *domain.Timestamp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l := findLoan(w.history, loanID); l != nil {
		l.LastReminderDate = ts
	}
}

func failureReason(err error) string {
	var rerr *library.ReminderError
	if errors.As(err, &rerr) {
		return rerr.Reason
	}
	return err.Error()
}
