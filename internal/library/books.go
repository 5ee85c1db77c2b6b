package library

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
)

func (c *Client) Books(ctx context.Context, order Order) ([]domain.Book, error) {
	var books []domain.Book
	if err := c.api.GetJSON(ctx, "/api/books", url.Values{"order_by": {string(order)}}, &books); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (c *Client) AvailableBooks(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	if err := c.api.GetJSON(ctx, "/api/available_books", nil, &books); err != nil {
		return nil, fmt.Errorf("failed to list available books: %w", err)
	}
	return books, nil
}

func (c *Client) BorrowedBooks(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	if err := c.api.GetJSON(ctx, "/api/borrowed_books", nil, &books); err != nil {
		return nil, fmt.Errorf("failed to list borrowed books: %w", err)
	}
	return books, nil
}

// BookByQR returns ErrNotFound when no book carries the code.
func (c *Client) BookByQR(ctx context.Context, qr string) (*domain.Book, error) {
	var book domain.Book
	err := c.api.GetJSON(ctx, "/api/book/"+url.PathEscape(qr), nil, &book)
	if apiclient.IsNotFound(err) {
		return nil, fmt.Errorf("book %q: %w", qr, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up book %q: %w", qr, err)
	}
	if book.QRCode == "" && book.ID == 0 {
		return nil, fmt.Errorf("book %q: %w", qr, ErrNotFound)
	}
	return &book, nil
}

func (c *Client) AddBook(ctx context.Context, draft BookDraft) (*domain.Book, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.LoanStatus = domain.LoanStatusAvailable

	var created domain.Book
	if err := c.api.PostJSON(ctx, "/api/books", draft, &created); err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}
	return &created, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, draft BookDraft) error {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return err
	}
	// Loan status belongs to the borrow and return calls.
	draft.LoanStatus = ""

	if err := c.api.PutJSON(ctx, "/api/books/"+strconv.FormatInt(id, 10), draft, nil); err != nil {
		return fmt.Errorf("failed to update book %d: %w", id, err)
	}
	return nil
}
