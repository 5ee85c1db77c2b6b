package library

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
)

// LoanDetails is the summary the server puts in the reminder email.
type LoanDetails struct {
	BorrowerName string            `json:"borrower_name"`
	BookTitle    string            `json:"book_title"`
	BorrowedAt   *domain.Timestamp `json:"borrowed_at"`
}

func DetailsOf(l *domain.Loan) LoanDetails {
	return LoanDetails{BorrowerName: l.BorrowerName, BookTitle: l.BookTitle, BorrowedAt: l.BorrowedAt}
}

// ReminderError carries the reason the server gave for not sending.
type ReminderError struct {
	LoanID int64
	Reason string
}

func (e *ReminderError) Error() string {
	return fmt.Sprintf("reminder for loan %d: %s", e.LoanID, e.Reason)
}

func (c *Client) SendReminder(ctx context.Context, loanID int64, subject string, details LoanDetails) error {
	body := struct {
		LoanID      int64       `json:"loan_id"`
		Subject     string      `json:"subject"`
		LoanDetails LoanDetails `json:"loan_details"`
	}{loanID, subject, details}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.api.PostJSON(ctx, "/api/send-reminder", body, &resp); err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			return &ReminderError{LoanID: loanID, Reason: apiErr.Message}
		}
		return fmt.Errorf("failed to send reminder for loan %d: %w", loanID, err)
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "unknown error"
		}
		return &ReminderError{LoanID: loanID, Reason: reason}
	}
	return nil
}

// LastReminder returns when the latest reminder for a loan was sent, or nil
// when none was.
func (c *Client) LastReminder(ctx context.Context, loanID int64) (*domain.Timestamp, error) {
	var resp domain.Reminder
	err := c.api.GetJSON(ctx, "/api/reminders/last/"+strconv.FormatInt(loanID, 10), nil, &resp)
	if apiclient.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last reminder for loan %d: %w", loanID, err)
	}
	if resp.SentAt == nil || resp.SentAt.IsZero() {
		return nil, nil
	}
	return resp.SentAt, nil
}

// LastReminders looks up many loans in one call. It returns ErrUnsupported
// when batching is switched off or the server lacks the endpoint.
func (c *Client) LastReminders(ctx context.Context, loanIDs []int64) (map[int64]*domain.Timestamp, error) {
	if !c.opts.BatchReminders {
		return nil, ErrUnsupported
	}
	out := make(map[int64]*domain.Timestamp, len(loanIDs))
	if len(loanIDs) == 0 {
		return out, nil
	}

	q := url.Values{}
	for _, id := range loanIDs {
		q.Add("loan_id", strconv.FormatInt(id, 10))
	}
	var resp []domain.Reminder
	err := c.api.GetJSON(ctx, "/api/reminders/last", q, &resp)
	switch apiclient.StatusCode(err) {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last reminders: %w", err)
	}

	for _, r := range resp {
		if r.SentAt != nil && !r.SentAt.IsZero() {
			out[r.LoanID] = r.SentAt
		}
	}
	return out, nil
}
