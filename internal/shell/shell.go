// Package shell is the interactive operator console. It keeps the tabbed
// navigation of the library desk: one tab active at a time, a language that
// can be toggled, and a header showing who is logged in and whether the
// backend answers.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/catalog"
	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/labels"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/loans"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
	"github.com/vbonduro/librarydesk/internal/reports"
	"github.com/vbonduro/librarydesk/internal/session"
	"github.com/vbonduro/librarydesk/internal/status"
	"github.com/vbonduro/librarydesk/internal/store"
)

type Tab string

const (
	TabInventory Tab = "inventory"
	TabLoans     Tab = "loans"
	TabMembers   Tab = "members"
	TabReports   Tab = "reports"
)

var Tabs = []Tab{TabInventory, TabLoans, TabMembers, TabReports}

func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// labelKey is the label of the tab title.
func (t Tab) labelKey() string {
	if t == TabInventory {
		return "books"
	}
	return string(t)
}

type Sessions interface {
	State() session.State
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Current() *domain.Session
}

type Settings interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Scanner interface {
	Decode(ctx context.Context, data []byte, platform qrdecode.Platform) (*qrdecode.Result, error)
}

type StatusSource interface {
	Latest() status.Snapshot
}

type Deps struct {
	Sessions  Sessions
	Settings  Settings
	Inventory *catalog.Inventory
	Members   *catalog.Registry
	Loans     *loans.Workflow
	Reports   *reports.Generator
	Scanner   Scanner
	Platform  qrdecode.Platform
	Status    StatusSource
	// SetLanguage forwards a language change to the API client.
	SetLanguage func(lang string)
	// ReadPassword reads a secret without echo. When nil the password is
	// read as a plain line from In.
	ReadPassword func(prompt string) (string, error)
	Language     string
	In           io.Reader
	Out          io.Writer
	Logger       *slog.Logger
}

type Shell struct {
	d      Deps
	in     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger

	tab  Tab
	lang string
}

func New(d Deps) *Shell {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SetLanguage == nil {
		d.SetLanguage = func(string) {}
	}
	lang := d.Language
	if !labels.Supported(lang) {
		lang = labels.Default
	}
	return &Shell{
		d:      d,
		in:     bufio.NewScanner(d.In),
		out:    d.Out,
		logger: d.Logger,
		tab:    TabInventory,
		lang:   lang,
	}
}

func (s *Shell) Tab() Tab { return s.tab }

func (s *Shell) Language() string { return s.lang }

func (s *Shell) labels() labels.Labels { return labels.For(s.lang) }

// Restore applies the persisted language and tab.
func (s *Shell) Restore(ctx context.Context) error {
	if lang, ok, err := s.d.Settings.Get(ctx, store.SettingLanguage); err != nil {
		return err
	} else if ok && labels.Supported(lang) {
		s.lang = lang
	}
	if tab, ok, err := s.d.Settings.Get(ctx, store.SettingTab); err != nil {
		return err
	} else if ok {
		if t, err := ParseTab(tab); err == nil {
			s.tab = t
		}
	}
	s.d.SetLanguage(s.lang)
	return nil
}

// ToggleLanguage switches between English and Hebrew and saves the choice.
func (s *Shell) ToggleLanguage(ctx context.Context) error {
	s.lang = labels.Toggle(s.lang)
	s.d.SetLanguage(s.lang)
	if err := s.d.Settings.Set(ctx, store.SettingLanguage, s.lang); err != nil {
		return fmt.Errorf("failed to save language: %w", err)
	}
	return nil
}

// SetTab activates t, persists it and loads the data the tab shows.
func (s *Shell) SetTab(ctx context.Context, t Tab) error {
	s.tab = t
	if err := s.d.Settings.Set(ctx, store.SettingTab, string(t)); err != nil {
		s.logger.Warn("failed to save tab", "tab", t, "error", err)
	}
	return s.loadTab(ctx)
}

func (s *Shell) loadTab(ctx context.Context) error {
	switch s.tab {
	case TabInventory:
		return s.d.Inventory.Load(ctx, s.d.Inventory.Order())
	case TabMembers:
		return s.d.Members.Load(ctx)
	case TabLoans:
		return s.d.Loans.Load(ctx)
	case TabReports:
		if s.d.Reports.Form().Kind == reports.KindQR {
			return s.d.Reports.LoadCatalog(ctx)
		}
	}
	return nil
}

// Header renders the title line: app, active tab, connectivity and user.
func (s *Shell) Header() string {
	l := s.labels()
	snap := s.d.Status.Latest()
	user := "-"
	if sess := s.d.Sessions.Current(); sess != nil {
		user = sess.Username
	}
	return fmt.Sprintf("%s | %s | %s %s | %s %s | %s",
		l.Get("app_title"),
		l.Get(s.tab.labelKey()),
		indicator(snap.Backend.State), l.Get("backend"),
		indicator(snap.Database.State), l.Get("database"),
		user,
	)
}

func indicator(st status.State) string {
	switch st {
	case status.StateUp:
		return "●"
	case status.StateDown:
		return "✕"
	default:
		return "?"
	}
}

// Run drives the prompt until the input ends, the operator exits or ctx is
// cancelled. Whenever the session is gone the operator is asked to log in.
func (s *Shell) Run(ctx context.Context) error {
	if err := s.Restore(ctx); err != nil {
		s.logger.Warn("failed to restore settings", "error", err)
	}
	loaded := false
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if s.d.Sessions.State() != session.Authenticated {
			loaded = false
			ok, err := s.login(ctx)
			if err != nil || !ok {
				return err
			}
		}
		if !loaded {
			s.report(s.loadTab(ctx))
			loaded = true
			s.println(s.Header())
		}

		fmt.Fprintf(s.out, "%s> ", s.tab)
		if !s.in.Scan() {
			return s.in.Err()
		}
		quit, err := s.Exec(ctx, s.in.Text())
		s.report(err)
		if quit {
			return nil
		}
	}
}

// login prompts until a login succeeds. It reports false when the input ends.
func (s *Shell) login(ctx context.Context) (bool, error) {
	l := s.labels()
	for {
		fmt.Fprintf(s.out, "%s: ", l.Get("username_prompt"))
		if !s.in.Scan() {
			return false, s.in.Err()
		}
		username := strings.TrimSpace(s.in.Text())

		password, err := s.readPassword(l.Get("password_prompt") + ": ")
		if err != nil {
			return false, err
		}

		err = s.d.Sessions.Login(ctx, username, password)
		switch {
		case err == nil:
			s.println(l.Get("logged_in"))
			return true, nil
		case errors.Is(err, session.ErrInvalidCredentials):
			s.println(l.Get("invalid_credentials"))
		default:
			s.println(fmt.Sprintf("%s: %v", l.Get("error"), err))
		}
	}
}

func (s *Shell) readPassword(prompt string) (string, error) {
	if s.d.ReadPassword != nil {
		return s.d.ReadPassword(prompt)
	}
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.in.Text(), nil
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help":
		s.help()
		return false, nil
	case "tab":
		if len(args) != 1 {
			return false, errUsage("tab inventory|loans|members|reports")
		}
		t, err := ParseTab(args[0])
		if err != nil {
			return false, err
		}
		return false, s.SetTab(ctx, t)
	case "inventory", "loans", "members", "reports":
		return false, s.SetTab(ctx, Tab(cmd))
	case "lang":
		return false, s.ToggleLanguage(ctx)
	case "status":
		s.println(s.Header())
		return false, nil
	case "logout":
		if err := s.d.Sessions.Logout(ctx); err != nil {
			return false, err
		}
		s.println(s.labels().Get("logged_out"))
		return false, nil
	}

	var handler func(context.Context, string, []string) (bool, error)
	switch s.tab {
	case TabInventory:
		handler = s.inventoryCommand
	case TabMembers:
		handler = s.membersCommand
	case TabLoans:
		handler = s.loansCommand
	case TabReports:
		handler = s.reportsCommand
	}
	handled, err := handler(ctx, cmd, args)
	if !handled && err == nil {
		s.println(s.labels().Get("unknown_command"))
	}
	return false, err
}

type usageError string

func errUsage(usage string) error { return usageError(usage) }

func (u usageError) Error() string { return "usage: " + string(u) }

// report prints err in the operator's language. A rejected session needs no
// action here: the client already expired it and Run will ask for a login.
func (s *Shell) report(err error) {
	if err == nil {
		return
	}
	l := s.labels()
	var verr library.ValidationError
	switch {
	case errors.Is(err, apiclient.ErrSessionExpired):
		s.println(l.Get("session_expired"))
	case errors.As(err, &verr):
		for _, f := range verr {
			s.println(l.Get(f.Key))
		}
	case errors.Is(err, library.ErrMemberHasLoans):
		s.println(l.Get("error_member_has_loans"))
	case errors.Is(err, library.ErrNotFound):
		s.println(l.Get("not_found"))
	default:
		s.logger.Debug("command failed", "tab", s.tab, "error", err)
		s.println(fmt.Sprintf("%s: %v", l.Get("error"), err))
	}
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Shell) help() {
	common := "tab <name> | inventory | loans | members | reports | lang | status | logout | exit"
	var local string
	switch s.tab {
	case TabInventory:
		local = "list [asc|desc] | search <title> | show <id> | add | edit <id>"
	case TabMembers:
		local = "list | search <name> | add | edit <id> | delete <id> | history <id>"
	case TabLoans:
		local = "mode borrow|return | borrower <member id> | book <qr> | condition new|good|worn | borrow | return | " +
			"history [all|latest] | card <loan id> | remind <loan id>|all | send | scan <image> | show"
	case TabReports:
		local = "kind inventory|loans|qr | sort <column> [asc|desc] | borrowed on|off | history on|off | " +
			"range <start> <end> | pick <qr> | clear | catalog | show | generate"
	}
	s.println(common)
	s.println(local)
}
