// Package catalog keeps the operator's working copy of the book inventory
// and the member registry.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
)

// bookRepository is the subset of library.Client that Inventory requires.
type bookRepository interface {
	Books(ctx context.Context, order library.Order) ([]domain.Book, error)
	AddBook(ctx context.Context, draft library.BookDraft) (*domain.Book, error)
	UpdateBook(ctx context.Context, id int64, draft library.BookDraft) error
}

type Inventory struct {
	books  bookRepository
	logger *slog.Logger
	order  library.Order
	list   []domain.Book
}

func NewInventory(books bookRepository, logger *slog.Logger) *Inventory {
	return &Inventory{books: books, logger: logger, order: library.OrderDesc}
}

func (inv *Inventory) Order() library.Order {
	return inv.order
}

// Load replaces the list with the server's books in the given id order.
func (inv *Inventory) Load(ctx context.Context, order library.Order) error {
	books, err := inv.books.Books(ctx, order)
	if err != nil {
		return err
	}
	inv.order = order
	inv.list = books
	return nil
}

func (inv *Inventory) Books() []domain.Book {
	return append([]domain.Book(nil), inv.list...)
}

// Search filters the loaded books by title, ignoring case. An empty query
// returns every book.
func (inv *Inventory) Search(query string) []domain.Book {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return inv.Books()
	}
	var out []domain.Book
	for _, b := range inv.list {
		if strings.Contains(strings.ToLower(b.Title), q) {
			out = append(out, b)
		}
	}
	return out
}

func (inv *Inventory) Find(id int64) (*domain.Book, bool) {
	for i := range inv.list {
		if inv.list[i].ID == id {
			b := inv.list[i]
			return &b, true
		}
	}
	return nil, false
}

// Add creates a book and reloads the list so it shows in server order.
func (inv *Inventory) Add(ctx context.Context, draft library.BookDraft) (*domain.Book, error) {
	b, err := inv.books.AddBook(ctx, draft)
	if err != nil {
		return nil, err
	}
	inv.logger.Info("book added", "id", b.ID, "qr_code", b.QRCode)
	return b, inv.Load(ctx, inv.order)
}

func (inv *Inventory) Update(ctx context.Context, id int64, draft library.BookDraft) error {
	if err := inv.books.UpdateBook(ctx, id, draft); err != nil {
		return err
	}
	inv.logger.Info("book updated", "id", id)
	return inv.Load(ctx, inv.order)
}
