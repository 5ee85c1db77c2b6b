package library

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// Borrow records a new loan and returns the server's confirmation message.
func (c *Client) Borrow(ctx context.Context, qr string, memberID int64, state domain.Condition) (string, error) {
	body := struct {
		QRCode    string           `json:"qr_code"`
		MemberID  int64            `json:"member_id"`
		BookState domain.Condition `json:"book_state"`
	}{qr, memberID, state}

	var resp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := c.api.PostJSON(ctx, "/api/book/borrow", body, &resp); err != nil {
		return "", fmt.Errorf("failed to borrow %q: %w", qr, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("failed to borrow %q: %s", qr, resp.Error)
	}
	if resp.Message == "" {
		return "", fmt.Errorf("failed to borrow %q: %w", qr, ErrNoConfirmation)
	}
	return resp.Message, nil
}

func (c *Client) Return(ctx context.Context, qr string) error {
	var resp struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.api.PostJSON(ctx, "/api/book/return", map[string]string{"qr_code": qr}, &resp); err != nil {
		return fmt.Errorf("failed to return %q: %w", qr, err)
	}
	if resp.Success != nil && !*resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "rejected by server"
		}
		return fmt.Errorf("failed to return %q: %s", qr, msg)
	}
	return nil
}

// LoanHistory lists loans, optionally narrowed to one book. Without showAll
// the server answers with the latest loan of each book.
func (c *Client) LoanHistory(ctx context.Context, qr string, showAll bool) ([]domain.Loan, error) {
	q := url.Values{
		"qr_code":  {qr},
		"show_all": {strconv.FormatBool(showAll)},
	}
	var loans []domain.Loan
	if err := c.api.GetJSON(ctx, "/api/loans/history", q, &loans); err != nil {
		return nil, fmt.Errorf("failed to load loan history: %w", err)
	}
	return loans, nil
}

func (c *Client) OpenLoans(ctx context.Context, qr string) ([]domain.Loan, error) {
	var q url.Values
	if qr != "" {
		q = url.Values{"qr_code": {qr}}
	}
	var loans []domain.Loan
	if err := c.api.GetJSON(ctx, "/api/open_loans", q, &loans); err != nil {
		return nil, fmt.Errorf("failed to load open loans: %w", err)
	}
	return loans, nil
}

// CurrentLoan finds the open loan of a book, or nil when the history has
// none.
func (c *Client) CurrentLoan(ctx context.Context, qr string) (*domain.Loan, error) {
	loans, err := c.LoanHistory(ctx, qr, true)
	if err != nil {
		return nil, err
	}
	var current *domain.Loan
	for i := range loans {
		l := &loans[i]
		if !l.Open() || (l.QRCode != "" && l.QRCode != qr) {
			continue
		}
		if current == nil || borrowedAfter(l, current) {
			current = l
		}
	}
	return current, nil
}

func borrowedAfter(a, b *domain.Loan) bool {
	if a.BorrowedAt == nil {
		return false
	}
	if b.BorrowedAt == nil {
		return true
	}
	return a.BorrowedAt.After(b.BorrowedAt.Time)
}
