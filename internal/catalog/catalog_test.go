package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/logging"
)

// stubBooks is an in-memory bookRepository.
type stubBooks struct {
	books   []domain.Book
	addErr  error
	orders  []library.Order
	updates map[int64]library.BookDraft
}

func (s *stubBooks) Books(_ context.Context, order library.Order) ([]domain.Book, error) {
	s.orders = append(s.orders, order)
	out := append([]domain.Book(nil), s.books...)
	if order == library.OrderDesc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *stubBooks) AddBook(_ context.Context, d library.BookDraft) (*domain.Book, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	b := domain.Book{ID: int64(len(s.books) + 1), Title: d.Title, Author: d.Author, QRCode: fmt.Sprintf("Q%d", len(s.books)+1)}
	s.books = append(s.books, b)
	return &b, nil
}

func (s *stubBooks) UpdateBook(_ context.Context, id int64, d library.BookDraft) error {
	if s.updates == nil {
		s.updates = map[int64]library.BookDraft{}
	}
	s.updates[id] = d
	for i := range s.books {
		if s.books[i].ID == id {
			s.books[i].Title = d.Title
		}
	}
	return nil
}

// stubMembers is an in-memory memberRepository.
type stubMembers struct {
	members   []domain.Member
	deleteErr error
	deleted   []int64
}

func (s *stubMembers) Members(context.Context) ([]domain.Member, error) {
	return append([]domain.Member(nil), s.members...), nil
}

func (s *stubMembers) AddMember(_ context.Context, d library.MemberDraft) (*domain.Member, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	m := domain.Member{ID: int64(len(s.members) + 1), ParentName: d.ParentName, KidName: d.KidName, Email: d.Email}
	s.members = append(s.members, m)
	return &m, nil
}

func (s *stubMembers) UpdateMember(context.Context, int64, library.MemberDraft) error { return nil }

func (s *stubMembers) DeleteMember(_ context.Context, m *domain.Member) error {
	if !m.Deletable() {
		return library.ErrMemberHasLoans
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, m.ID)
	return nil
}

func (s *stubMembers) MemberLoans(_ context.Context, id int64) ([]domain.Loan, error) {
	return []domain.Loan{{ID: 1, MemberID: id}}, nil
}

func TestInventoryOrderAndSearch(t *testing.T) {
	repo := &stubBooks{books: []domain.Book{
		{ID: 1, Title: "The Gruffalo"},
		{ID: 2, Title: "Matilda"},
		{ID: 3, Title: "gruffalo's child"},
	}}
	inv := NewInventory(repo, logging.Discard())
	ctx := context.Background()

	require.NoError(t, inv.Load(ctx, library.OrderDesc))
	assert.Equal(t, int64(3), inv.Books()[0].ID)

	require.NoError(t, inv.Load(ctx, library.OrderAsc))
	assert.Equal(t, int64(1), inv.Books()[0].ID)

	hits := inv.Search("  GRUFFALO ")
	require.Len(t, hits, 2)
	assert.Len(t, inv.Search(""), 3)
	assert.Empty(t, inv.Search("dahl"))
}

func TestInventoryAddReloadsInSameOrder(t *testing.T) {
	repo := &stubBooks{}
	inv := NewInventory(repo, logging.Discard())
	ctx := context.Background()
	require.NoError(t, inv.Load(ctx, library.OrderAsc))

	b, err := inv.Add(ctx, library.BookDraft{Title: "New", Author: "A"})
	require.NoError(t, err)
	assert.Equal(t, "Q1", b.QRCode)
	assert.Len(t, inv.Books(), 1)
	assert.Equal(t, library.OrderAsc, repo.orders[len(repo.orders)-1])

	require.NoError(t, inv.Update(ctx, b.ID, library.BookDraft{Title: "Renamed", Author: "A"}))
	got, ok := inv.Find(b.ID)
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Title)
}

func TestInventoryAddFailureKeepsList(t *testing.T) {
	repo := &stubBooks{books: []domain.Book{{ID: 1, Title: "A"}}}
	inv := NewInventory(repo, logging.Discard())
	require.NoError(t, inv.Load(context.Background(), library.OrderDesc))

	repo.addErr = errors.New("server down")
	_, err := inv.Add(context.Background(), library.BookDraft{Title: "B", Author: "x"})
	assert.Error(t, err)
	assert.Len(t, inv.Books(), 1)
}

func TestRegistrySearch(t *testing.T) {
	repo := &stubMembers{members: []domain.Member{
		{ID: 1, ParentName: "Rivka Cohen", KidName: "Dana"},
		{ID: 2, ParentName: "Yossi Levi", KidName: "Noam"},
	}}
	reg := NewRegistry(repo, logging.Discard())
	require.NoError(t, reg.Load(context.Background()))

	assert.Len(t, reg.Search("dana"), 1)
	assert.Len(t, reg.Search("levi"), 1)
	assert.Len(t, reg.Search(""), 2)
}

func TestRegistryAddValidates(t *testing.T) {
	reg := NewRegistry(&stubMembers{}, logging.Discard())
	ctx := context.Background()

	_, err := reg.Add(ctx, library.MemberDraft{ParentName: "P"})
	var verr library.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("kid_name"))
	assert.Empty(t, reg.Members())

	m, err := reg.Add(ctx, library.MemberDraft{ParentName: "P", KidName: "K"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{*m}, reg.Members())
}

func TestRegistryDeleteGuard(t *testing.T) {
	repo := &stubMembers{members: []domain.Member{
		{ID: 1, ParentName: "A", KidName: "a", BorrowedBooksCount: 2},
		{ID: 2, ParentName: "B", KidName: "b"},
	}}
	reg := NewRegistry(repo, logging.Discard())
	ctx := context.Background()
	require.NoError(t, reg.Load(ctx))

	assert.ErrorIs(t, reg.Delete(ctx, 1), library.ErrMemberHasLoans)
	assert.Len(t, reg.Members(), 2)

	repo.deleteErr = errors.New("conflict")
	assert.Error(t, reg.Delete(ctx, 2))
	assert.Len(t, reg.Members(), 2)

	repo.deleteErr = nil
	require.NoError(t, reg.Delete(ctx, 2))
	assert.Len(t, reg.Members(), 1)
	assert.Equal(t, []int64{2}, repo.deleted)

	assert.ErrorIs(t, reg.Delete(ctx, 42), library.ErrNotFound)
}

func TestRegistryLoans(t *testing.T) {
	reg := NewRegistry(&stubMembers{}, logging.Discard())
	loans, err := reg.Loans(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loans[0].MemberID)
}
