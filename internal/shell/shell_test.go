package shell

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/catalog"
	"github.com/vbonduro/librarydesk/internal/db"
	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/fakeapi"
	"github.com/vbonduro/librarydesk/internal/labels"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/loans"
	"github.com/vbonduro/librarydesk/internal/logging"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
	"github.com/vbonduro/librarydesk/internal/reports"
	"github.com/vbonduro/librarydesk/internal/reportstore/local"
	"github.com/vbonduro/librarydesk/internal/session"
	"github.com/vbonduro/librarydesk/internal/status"
	"github.com/vbonduro/librarydesk/internal/store"
)

type stubScanner struct {
	text string
	err  error
}

func (s stubScanner) Decode(context.Context, []byte, qrdecode.Platform) (*qrdecode.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &qrdecode.Result{Text: s.text}, nil
}

type stubStatus struct{ snap status.Snapshot }

func (s stubStatus) Latest() status.Snapshot { return s.snap }

type harness struct {
	shell    *Shell
	fake     *fakeapi.Server
	sessions *session.Manager
	settings *store.SettingsStore
	out      *bytes.Buffer
	lang     string
	reports  string
}

func newHarness(t *testing.T, input string, scanner Scanner) *harness {
	t.Helper()
	fake := fakeapi.New()
	fake.Seed()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger := logging.Discard()
	api := apiclient.New(apiclient.Options{BaseURL: srv.URL, Language: labels.English, Logger: logger})
	sessions := session.NewManager(api, store.NewSessionStore(database), logger)
	api.SetTokenSource(sessions)
	lib := library.New(api, library.Options{})

	reportDir := t.TempDir()
	reportStore, err := local.NewLocalReportStore(reportDir, logger)
	require.NoError(t, err)

	h := &harness{
		fake:     fake,
		sessions: sessions,
		settings: store.NewSettingsStore(database),
		out:      &bytes.Buffer{},
		reports:  reportDir,
	}
	if scanner == nil {
		scanner = stubScanner{}
	}
	h.shell = New(Deps{
		Sessions:  sessions,
		Settings:  h.settings,
		Inventory: catalog.NewInventory(lib, logger),
		Members:   catalog.NewRegistry(lib, logger),
		Loans:     loans.New(lib, loans.Options{Concurrency: 2, Logger: logger}),
		Reports:   reports.NewGenerator(lib, reportStore, logger),
		Scanner:   scanner,
		Status: stubStatus{snap: status.Snapshot{
			Backend:  status.Probe{State: status.StateUp},
			Database: status.Probe{State: status.StateDown},
		}},
		SetLanguage: func(lang string) {
			h.lang = lang
			api.SetLanguage(lang)
		},
		Language: labels.English,
		In:       strings.NewReader(input),
		Out:      h.out,
		Logger:   logger,
	})
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sessions.Login(context.Background(), "librarian", "librarian"))
}

func (h *harness) exec(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		quit, err := h.shell.Exec(context.Background(), line)
		require.NoError(t, err, line)
		require.False(t, quit)
	}
}

func TestRunLogsInAndListsBooks(t *testing.T) {
	h := newHarness(t, "librarian\nwrong\nlibrarian\nlibrarian\nlist asc\nexit\n", nil)

	require.NoError(t, h.shell.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Invalid username or password.")
	assert.Contains(t, out, "Logged in.")
	assert.Contains(t, out, "Where the Wild Things Are")
	assert.Contains(t, out, "LIB-00001")
	assert.Equal(t, session.Authenticated, h.sessions.State())
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	h := newHarness(t, "", nil)
	require.NoError(t, h.shell.Run(context.Background()))
	assert.Equal(t, session.Unauthenticated, h.sessions.State())
}

func TestExpiredSessionReturnsToLogin(t *testing.T) {
	// The second login happens after the token is revoked mid-session.
	h := newHarness(t, "list\nlibrarian\nlibrarian\nexit\n", nil)
	h.login(t)
	h.fake.RevokeTokens()

	require.NoError(t, h.shell.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Session expired. Please log in again.")
	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Logged in.")
	assert.Equal(t, session.Authenticated, h.sessions.State())
}

func TestLanguageTogglePersists(t *testing.T) {
	h := newHarness(t, "", nil)
	h.exec(t, "lang")

	assert.Equal(t, labels.Hebrew, h.shell.Language())
	assert.Equal(t, labels.Hebrew, h.lang)
	got, ok, err := h.settings.Get(context.Background(), store.SettingLanguage)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, labels.Hebrew, got)
	assert.Contains(t, h.shell.Header(), "ספריית הקהילה הישראלית במדריד")

	// A new shell on the same settings starts in Hebrew.
	other := New(Deps{Settings: h.settings, Language: labels.English})
	require.NoError(t, other.Restore(context.Background()))
	assert.Equal(t, labels.Hebrew, other.Language())
}

func TestHeaderShowsConnectivityAndUser(t *testing.T) {
	h := newHarness(t, "", nil)
	h.login(t)

	assert.Equal(t,
		"The Library of the Israeli Community of Madrid | Books | ● Backend | ✕ Database | librarian",
		h.shell.Header())
}

func TestTabSwitchPersistsAndLoads(t *testing.T) {
	h := newHarness(t, "", nil)
	h.login(t)

	h.exec(t, "members", "search noam")
	assert.Equal(t, TabMembers, h.shell.Tab())
	assert.Contains(t, h.out.String(), "Yossi Levi")
	assert.NotContains(t, h.out.String(), "Miriam Mizrahi")

	got, _, err := h.settings.Get(context.Background(), store.SettingTab)
	require.NoError(t, err)
	assert.Equal(t, "members", got)

	_, err = h.shell.Exec(context.Background(), "tab attic")
	assert.Error(t, err)
}

func TestMemberDeleteGuard(t *testing.T) {
	h := newHarness(t, "", nil)
	h.login(t)
	h.exec(t, "members")

	_, err := h.shell.Exec(context.Background(), "delete 1")
	require.ErrorIs(t, err, library.ErrMemberHasLoans)
	h.shell.report(err)
	assert.Contains(t, h.out.String(), "cannot be deleted")

	h.exec(t, "delete 3")
	assert.Contains(t, h.out.String(), "Member deleted.")
}

func TestMemberAddPromptsAndValidates(t *testing.T) {
	h := newHarness(t, "Sara Katz\n\nnot-an-email\n", nil)
	h.login(t)
	h.exec(t, "members")

	_, err := h.shell.Exec(context.Background(), "add")
	var verr library.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("kid_name"))
	assert.True(t, verr.Has("email"))
}

func TestBorrowFromShell(t *testing.T) {
	h := newHarness(t, "", nil)
	h.login(t)

	h.exec(t, "loans", "mode borrow", "borrower 3", "book LIB-00002", "condition good", "borrow")

	assert.Contains(t, h.out.String(), "Book borrowed successfully")
	for _, b := range h.shell.d.Loans.AvailableBooks() {
		assert.NotEqual(t, "LIB-00002", b.QRCode)
	}

	h.exec(t, "borrow")
	assert.Contains(t, h.out.String(), "Please select a borrower, book, and book state.")
}

func TestReturnViaLoanCard(t *testing.T) {
	h := newHarness(t, "", nil)
	h.login(t)
	h.exec(t, "loans", "mode borrow")

	var open int64
	for _, l := range h.shell.d.Loans.History() {
		if l.Open() && l.QRCode == "LIB-00003" {
			open = l.ID
		}
	}
	require.NotZero(t, open)

	h.exec(t, "card "+strconv.FormatInt(open, 10), "return")
	assert.Equal(t, loans.ModeReturn, h.shell.d.Loans.Mode())
	assert.Contains(t, h.out.String(), "Book returned successfully!")
}

func TestScanDescribesBorrowedBook(t *testing.T) {
	h := newHarness(t, "", stubScanner{text: "LIB-00003"})
	h.login(t)
	img := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))

	h.exec(t, "loans", "scan "+img)
	assert.Contains(t, h.out.String(), `was borrowed by Dana on`)
}

func TestScanFailureIsExplained(t *testing.T) {
	h := newHarness(t, "", stubScanner{err: &qrdecode.DecodeError{Kind: qrdecode.KindNoCode}})
	h.login(t)
	img := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))

	h.exec(t, "loans", "scan "+img)
	assert.Contains(t, h.out.String(), "No QR code was found in the image.")
	assert.Contains(t, h.out.String(), "Select another image to retry")
}

func TestGenerateReport(t *testing.T) {
	h := newHarness(t, "", nil)
	h.login(t)

	h.exec(t, "reports", "kind inventory")
	_, err := h.shell.Exec(context.Background(), "generate")
	require.ErrorIs(t, err, reports.ErrNotReady)

	h.exec(t, "sort title desc", "generate")
	assert.Contains(t, h.out.String(), "Report saved to")
	_, err = os.Stat(filepath.Join(h.reports, reports.FileName(reports.KindInventory)))
	assert.NoError(t, err)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, "", nil)
	h.exec(t, "frobnicate")
	assert.Contains(t, h.out.String(), "Unknown command.")

	quit, err := h.shell.Exec(context.Background(), "exit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestParseTab(t *testing.T) {
	for _, tab := range Tabs {
		got, err := ParseTab(string(tab))
		require.NoError(t, err)
		assert.Equal(t, tab, got)
	}
	_, err := ParseTab("")
	assert.Error(t, err)
}

func TestParseConditionShorthands(t *testing.T) {
	assert.Equal(t, domain.ConditionNew, parseCondition("new"))
	assert.Equal(t, domain.CoverBattery, parseCover("battery"))
	assert.Equal(t, domain.Condition("raw"), parseCondition("raw"))
}
