package library

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/fakeapi"
	"github.com/vbonduro/librarydesk/internal/logging"
)

type staticToken string

func (s staticToken) Token() string        { return string(s) }
func (staticToken) Expire(context.Context) {}

func newTestClient(t *testing.T, opts Options, fakeOpts ...fakeapi.Option) (*Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(fakeOpts...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api := apiclient.New(apiclient.Options{BaseURL: srv.URL, Logger: logging.Discard()})
	api.SetTokenSource(staticToken(fake.IssueToken("librarian")))
	return New(api, opts), fake
}

func TestBooksOrdering(t *testing.T) {
	c, fake := newTestClient(t, Options{})
	fake.AddBook(domain.Book{Title: "A", Author: "x"})
	fake.AddBook(domain.Book{Title: "B", Author: "y"})

	books, err := c.Books(context.Background(), OrderDesc)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "B", books[0].Title)

	books, err = c.Books(context.Background(), ParseOrder("asc"))
	require.NoError(t, err)
	assert.Equal(t, "A", books[0].Title)
}

func TestBookByQRNotFound(t *testing.T) {
	c, _ := newTestClient(t, Options{})

	_, err := c.BookByQR(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddBookValidatesAndDefaults(t *testing.T) {
	c, fake := newTestClient(t, Options{})

	_, err := c.AddBook(context.Background(), BookDraft{Title: " "})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("title"))
	assert.True(t, verr.Has("author"))
	assert.Zero(t, fake.Hits("add-book"))

	created, err := c.AddBook(context.Background(), BookDraft{Title: "Matilda", Author: "Roald Dahl", CoverType: domain.CoverSoft, Year: 1988})
	require.NoError(t, err)
	assert.NotEmpty(t, created.QRCode)
	assert.Equal(t, domain.ConditionWorn, created.Condition)
	assert.Equal(t, domain.LoanStatusAvailable, created.LoanStatus)
	assert.Equal(t, domain.FlexInt(1988), created.Year)
}

func TestUpdateBook(t *testing.T) {
	c, fake := newTestClient(t, Options{})
	b := fake.AddBook(domain.Book{Title: "Matilda", Author: "Dahl"})

	draft := DraftFromBook(&b)
	draft.Author = "Roald Dahl"
	require.NoError(t, c.UpdateBook(context.Background(), b.ID, draft))

	got, _ := fake.Book(b.QRCode)
	assert.Equal(t, "Roald Dahl", got.Author)
}

func TestMemberValidation(t *testing.T) {
	tests := []struct {
		name   string
		draft  MemberDraft
		fields []string
	}{
		{"ok", MemberDraft{ParentName: "Ana", KidName: "Lia", Email: "ana@example.org"}, nil},
		{"email optional", MemberDraft{ParentName: "Ana", KidName: "Lia"}, nil},
		{"missing names", MemberDraft{Email: "ana@example.org"}, []string{"parent_name", "kid_name"}},
		{"bad email", MemberDraft{ParentName: "Ana", KidName: "Lia", Email: "ana@"}, []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr, len(tt.fields))
			for _, f := range tt.fields {
				assert.True(t, verr.Has(f), f)
			}
		})
	}
}

func TestMembersAddListDelete(t *testing.T) {
	c, fake := newTestClient(t, Options{})
	ctx := context.Background()

	m, err := c.AddMember(ctx, MemberDraft{ParentName: " Ana ", KidName: "Lia"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", m.ParentName)
	assert.NotZero(t, m.ID)

	members, err := c.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)

	book := fake.AddBook(domain.Book{Title: "Matilda", Author: "Dahl"})
	_, err = fake.Lend(book.QRCode, m.ID, time.Now(), time.Time{})
	require.NoError(t, err)

	members, err = c.Members(ctx)
	require.NoError(t, err)
	err = c.DeleteMember(ctx, &members[0])
	assert.ErrorIs(t, err, ErrMemberHasLoans)
	assert.Zero(t, fake.Hits("delete-member"))

	// A stale copy reaches the server, which refuses it too.
	stale := members[0]
	stale.BorrowedBooksCount = 0
	err = c.DeleteMember(ctx, &stale)
	assert.ErrorIs(t, err, ErrMemberHasLoans)
	assert.Equal(t, 1, fake.Hits("delete-member"))
}

func TestMemberListShapes(t *testing.T) {
	var bare, wrapped memberList
	require.NoError(t, bare.UnmarshalJSON([]byte(`[{"id": 1, "parent_name": "Ana"}]`)))
	require.NoError(t, wrapped.UnmarshalJSON([]byte(`{"members": [{"id": 2, "parent_name": "Ben"}]}`)))
	assert.Equal(t, int64(1), bare[0].ID)
	assert.Equal(t, "Ben", wrapped[0].ParentName)
}

func TestBorrowAndReturn(t *testing.T) {
	c, fake := newTestClient(t, Options{})
	ctx := context.Background()
	book := fake.AddBook(domain.Book{QRCode: "Q123", Title: "Matilda", Author: "Dahl"})
	m := fake.AddMember(domain.Member{ParentName: "Ana", KidName: "Lia"})

	msg, err := c.Borrow(ctx, book.QRCode, m.ID, domain.ConditionGood)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	_, err = c.Borrow(ctx, book.QRCode, m.ID, domain.ConditionGood)
	assert.Equal(t, 400, apiclient.StatusCode(err))

	loan, err := c.CurrentLoan(ctx, "Q123")
	require.NoError(t, err)
	require.NotNil(t, loan)
	assert.Equal(t, "Lia", loan.BorrowerName)

	require.NoError(t, c.Return(ctx, "Q123"))
	assert.Error(t, c.Return(ctx, "Q123"))

	history, err := c.LoanHistory(ctx, "Q123", false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Open())
}

func TestBorrowWithoutConfirmationFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)
	api := apiclient.New(apiclient.Options{BaseURL: srv.URL, Logger: logging.Discard()})
	api.SetTokenSource(staticToken("t"))

	msg, err := New(api, Options{}).Borrow(context.Background(), "Q123", 1, domain.ConditionGood)
	assert.ErrorIs(t, err, ErrNoConfirmation)
	assert.Empty(t, msg)
}

func TestReminders(t *testing.T) {
	now := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	c, fake := newTestClient(t, Options{}, fakeapi.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	book := fake.AddBook(domain.Book{Title: "Matilda", Author: "Dahl"})
	m := fake.AddMember(domain.Member{ParentName: "Ana", KidName: "Lia"})
	loan, err := fake.Lend(book.QRCode, m.ID, now.AddDate(0, 0, -20), time.Time{})
	require.NoError(t, err)

	sent, err := c.LastReminder(ctx, loan.ID)
	require.NoError(t, err)
	assert.Nil(t, sent)

	require.NoError(t, c.SendReminder(ctx, loan.ID, "Book Return Reminder", DetailsOf(&loan)))
	sent, err = c.LastReminder(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.True(t, now.Equal(sent.Time))

	fake.FailReminder(loan.ID, "SMTP unavailable")
	err = c.SendReminder(ctx, loan.ID, "Book Return Reminder", DetailsOf(&loan))
	var rerr *ReminderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "SMTP unavailable", rerr.Reason)

	_, err = c.LastReminders(ctx, []int64{loan.ID})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBatchReminders(t *testing.T) {
	ctx := context.Background()

	t.Run("server supports it", func(t *testing.T) {
		c, fake := newTestClient(t, Options{BatchReminders: true}, fakeapi.WithBatchReminders())
		book := fake.AddBook(domain.Book{Title: "Matilda", Author: "Dahl"})
		m := fake.AddMember(domain.Member{ParentName: "Ana", KidName: "Lia"})
		loan, err := fake.Lend(book.QRCode, m.ID, time.Now(), time.Time{})
		require.NoError(t, err)
		require.NoError(t, c.SendReminder(ctx, loan.ID, "s", DetailsOf(&loan)))

		got, err := c.LastReminders(ctx, []int64{loan.ID, 999})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.NotNil(t, got[loan.ID])
	})

	t.Run("server lacks it", func(t *testing.T) {
		c, _ := newTestClient(t, Options{BatchReminders: true})
		_, err := c.LastReminders(ctx, []int64{1})
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestReportsAndHealth(t *testing.T) {
	c, fake := newTestClient(t, Options{})
	ctx := context.Background()
	fake.AddBook(domain.Book{Title: "Matilda", Author: "Dahl"})

	require.NoError(t, c.Health(ctx))
	require.NoError(t, c.DBStatus(ctx))

	p, err := c.InventoryReport(ctx, InventoryReportQuery{Order: OrderAsc, SortColumn: "title", IncludeBorrowed: true})
	require.NoError(t, err)
	assert.Contains(t, p.ContentType, "spreadsheetml")
	assert.Equal(t, map[string]string{
		"order_by": "asc", "sort_column": "title", "include_borrowed": "true", "language": "",
	}, fake.LastReportQuery())

	catalog, err := c.QRCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)

	pdf, err := c.QRSheetSelection(ctx, []string{catalog[0].QRCode})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)

	_, err = c.QRSheetRange(ctx, 5, 1)
	assert.Equal(t, 400, apiclient.StatusCode(err))
}
