package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/fakeapi"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/loans"
	"github.com/vbonduro/librarydesk/internal/logging"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
	"github.com/vbonduro/librarydesk/internal/reports"
	"github.com/vbonduro/librarydesk/internal/shell"
	"github.com/vbonduro/librarydesk/internal/web"
	"github.com/vbonduro/librarydesk/internal/web/templates"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o overrides
	root := &cobra.Command{
		Use:          "librarydesk",
		Short:        "Operator console for the community library",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.apiURL, "api-url", "", "library server base URL")
	root.PersistentFlags().StringVar(&o.language, "lang", "", "display language (en or he)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		loginCmd(&o),
		logoutCmd(&o),
		booksCmd(&o),
		membersCmd(&o),
		loansCmd(&o),
		reportsCmd(&o),
		statusCmd(&o),
		shellCmd(&o),
		serveCmd(&o),
		sandboxCmd(&o),
	)
	return root
}

// withApp builds the app for one command run and closes it afterwards.
// Interactive commands keep log lines off the terminal.
func withApp(o *overrides, quiet bool, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(*o, stderrOrNil(quiet))
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd.Context(), a, args)
	}
}

// withSession is withApp for commands that need a logged-in operator.
func withSession(o *overrides, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return withApp(o, false, func(ctx context.Context, a *app, args []string) error {
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		err := run(ctx, a, args)
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return errors.New(a.labels().Get("session_expired"))
		}
		return err
	})
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func loginCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save the session",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, false, func(ctx context.Context, a *app, args []string) error {
			l := a.labels()
			password, err := readPassword(l.Get("password_prompt") + ": ")
			if err != nil {
				return err
			}
			if err := a.sessions.Login(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Println(l.Get("logged_in"))
			return nil
		}),
	}
}

func logoutCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: withApp(o, false, func(ctx context.Context, a *app, _ []string) error {
			if err := a.sessions.Logout(ctx); err != nil {
				return err
			}
			fmt.Println(a.labels().Get("logged_out"))
			return nil
		}),
	}
}

func booksCmd(o *overrides) *cobra.Command {
	cmd := &cobra.Command{Use: "books", Short: "Browse the inventory"}

	var order, search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List books by id",
		RunE: withSession(o, func(ctx context.Context, a *app, _ []string) error {
			inv := a.inventory()
			if err := inv.Load(ctx, library.ParseOrder(order)); err != nil {
				return err
			}
			l := a.labels()
			for _, b := range inv.Search(search) {
				fmt.Printf("%d\t%s\t%s\t%s\t%s\n", b.ID, b.QRCode, b.Title, b.Author, l.LoanStatus(b.LoanStatus))
			}
			return nil
		}),
	}
	list.Flags().StringVar(&order, "order", "desc", "asc or desc")
	list.Flags().StringVar(&search, "search", "", "filter by title")

	show := &cobra.Command{
		Use:   "show <qr>",
		Short: "Show one book and who has it",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			res, err := a.loanWorkflow().Scan(ctx, args[0])
			if errors.Is(err, library.ErrNotFound) {
				return errors.New(a.labels().Get("book_not_found"))
			}
			if err != nil {
				return err
			}
			fmt.Println(res.Describe(a.labels()))
			return nil
		}),
	}
	cmd.AddCommand(list, show)
	return cmd
}

func membersCmd(o *overrides) *cobra.Command {
	cmd := &cobra.Command{Use: "members", Short: "Manage library members"}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: withSession(o, func(ctx context.Context, a *app, _ []string) error {
			reg := a.registryOfMembers()
			if err := reg.Load(ctx); err != nil {
				return err
			}
			for _, m := range reg.Search(search) {
				fmt.Printf("%d\t%s\t%s\t%s\t%d\n", m.ID, m.ParentName, m.KidName, m.Email, m.BorrowedBooksCount)
			}
			return nil
		}),
	}
	list.Flags().StringVar(&search, "search", "", "filter by parent or kid name")

	var draft library.MemberDraft
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		RunE: withSession(o, func(ctx context.Context, a *app, _ []string) error {
			m, err := a.registryOfMembers().Add(ctx, draft)
			if err != nil {
				return explain(a, err)
			}
			fmt.Printf("%s (%d)\n", a.labels().Get("success_member_added"), m.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&draft.ParentName, "parent", "", "parent name")
	add.Flags().StringVar(&draft.KidName, "kid", "", "kid name")
	add.Flags().StringVar(&draft.Email, "email", "", "email address")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a member without borrowed books",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			reg := a.registryOfMembers()
			if err := reg.Load(ctx); err != nil {
				return err
			}
			if err := reg.Delete(ctx, id); err != nil {
				return explain(a, err)
			}
			fmt.Println(a.labels().Get("success_member_deleted"))
			return nil
		}),
	}
	cmd.AddCommand(list, add, del)
	return cmd
}

// explain turns errors with a label into the operator's language.
func explain(a *app, err error) error {
	l := a.labels()
	var verr library.ValidationError
	switch {
	case errors.As(err, &verr):
		msgs := make([]string, len(verr))
		for i, f := range verr {
			msgs[i] = l.Get(f.Key)
		}
		return errors.New(strings.Join(msgs, " "))
	case errors.Is(err, library.ErrMemberHasLoans):
		return errors.New(l.Get("error_member_has_loans"))
	}
	return err
}

func loansCmd(o *overrides) *cobra.Command {
	cmd := &cobra.Command{Use: "loans", Short: "Borrow, return and remind"}

	var condition string
	borrow := &cobra.Command{
		Use:   "borrow <qr> <member id>",
		Short: "Lend a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			memberID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid member id %q", args[1])
			}
			w := a.loanWorkflow()
			if err := w.Load(ctx); err != nil {
				return err
			}
			if err := w.SetMode(ctx, loans.ModeBorrow); err != nil {
				return err
			}
			if err := w.SelectBorrower(memberID); err != nil {
				return err
			}
			if err := w.SelectBook(ctx, args[0]); err != nil {
				return err
			}
			if condition != "" {
				if err := w.SetCondition(parseCondition(condition)); err != nil {
					return err
				}
			}
			msg, err := w.Borrow(ctx)
			if err != nil && !errors.Is(err, loans.ErrReloadFailed) {
				return err
			}
			fmt.Println(msg)
			if err != nil {
				a.logger.Warn("borrow saved but refresh failed", "error", err)
			}
			return nil
		}),
	}
	borrow.Flags().StringVar(&condition, "condition", "", "new, good or worn; defaults to the book's state")

	ret := &cobra.Command{
		Use:   "return <qr>",
		Short: "Take a book back",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			w := a.loanWorkflow()
			if err := w.Load(ctx); err != nil {
				return err
			}
			if err := w.SetMode(ctx, loans.ModeReturn); err != nil {
				return err
			}
			if err := w.SelectBook(ctx, args[0]); err != nil {
				return err
			}
			err := w.Return(ctx)
			if err != nil && !errors.Is(err, loans.ErrReloadFailed) {
				return err
			}
			fmt.Println(a.labels().Get("return_success"))
			if err != nil {
				a.logger.Warn("return saved but refresh failed", "error", err)
			}
			return nil
		}),
	}

	var showAll bool
	history := &cobra.Command{
		Use:   "history [qr]",
		Short: "Show loan history, open loans first",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			qr := ""
			if len(args) == 1 {
				qr = args[0]
			}
			hist, err := a.lib.LoanHistory(ctx, qr, showAll)
			if err != nil {
				return err
			}
			loans.SortLoans(hist)
			l := a.labels()
			for _, ln := range hist {
				returned := ln.ReturnedAt.String()
				if ln.Open() {
					returned = l.Get("not_returned")
				}
				fmt.Printf("%d\t%s\t%s\t%s\t%s\t%s\n", ln.ID, ln.QRCode, ln.BookTitle, ln.BorrowerName, ln.BorrowedAt.String(), returned)
			}
			return nil
		}),
	}
	history.Flags().BoolVar(&showAll, "all", false, "include every past loan, not only the latest per book")

	var allOpen bool
	remind := &cobra.Command{
		Use:   "remind [loan id...]",
		Short: "Send return reminders",
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			w := a.loanWorkflow()
			if err := w.ReloadHistory(ctx); err != nil {
				return err
			}
			if allOpen {
				w.SelectAllOpen()
			}
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid loan id %q", arg)
				}
				if _, err := w.ToggleReminder(id); err != nil {
					return err
				}
			}
			rep, err := w.SendReminders(ctx)
			if err != nil {
				return err
			}
			l := a.labels()
			fmt.Printf(l.Get("reminders_sent")+"\n", rep.Sent)
			for _, f := range rep.Failures {
				fmt.Printf("%d\t%s\t%s\n", f.LoanID, f.BorrowerName, f.Reason)
			}
			if rep.Failed() > 0 {
				return errors.New(fmt.Sprintf(l.Get("reminders_failed"), rep.Failed()))
			}
			return nil
		}),
	}
	remind.Flags().BoolVar(&allOpen, "all-open", false, "remind every open loan")

	scan := &cobra.Command{
		Use:   "scan <image>",
		Short: "Identify a book from a photo of its QR label",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			dec, err := a.decoder()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			l := a.labels()
			res, err := dec.Decode(ctx, data, a.platform())
			if err != nil {
				var derr *qrdecode.DecodeError
				if errors.As(err, &derr) {
					return errors.New(l.Get(derr.LabelKey()))
				}
				return err
			}
			sr, err := a.loanWorkflow().Scan(ctx, res.Text)
			if errors.Is(err, library.ErrNotFound) {
				return fmt.Errorf("%s (%s)", l.Get("book_not_found"), res.Text)
			}
			if err != nil {
				return err
			}
			fmt.Println(sr.Describe(l))
			return nil
		}),
	}

	cmd.AddCommand(borrow, ret, history, remind, scan)
	return cmd
}

func parseCondition(s string) domain.Condition {
	switch s {
	case "new":
		return domain.ConditionNew
	case "good":
		return domain.ConditionGood
	case "worn":
		return domain.ConditionWorn
	}
	return domain.Condition(s)
}

func reportsCmd(o *overrides) *cobra.Command {
	var (
		sortBy          string
		order           string
		includeBorrowed bool
		includeHistory  bool
		rangeIDs        string
		selection       []string
	)
	cmd := &cobra.Command{
		Use:   "reports <inventory|loans|qr>",
		Short: "Download a report into the report directory",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(o, func(ctx context.Context, a *app, args []string) error {
			kind, err := reports.ParseKind(args[0])
			if err != nil {
				return err
			}
			g, err := a.reportGenerator()
			if err != nil {
				return err
			}
			g.SetKind(kind)
			switch kind {
			case reports.KindInventory, reports.KindLoans:
				g.SetSort(sortBy, library.ParseOrder(order))
				g.SetIncludeBorrowed(includeBorrowed)
				g.SetIncludeHistory(includeHistory)
			case reports.KindQR:
				if err := g.LoadCatalog(ctx); err != nil {
					return err
				}
				if len(selection) > 0 {
					for _, qr := range selection {
						g.Toggle(qr)
					}
				} else {
					start, end, err := parseRange(rangeIDs, g)
					if err != nil {
						return err
					}
					g.SetRange(start, end)
				}
			}
			path, err := g.Generate(ctx)
			if err != nil {
				return err
			}
			fmt.Printf(a.labels().Get("report_saved")+"\n", path)
			return nil
		}),
	}
	cmd.Flags().StringVar(&sortBy, "sort", "title", "sort column")
	cmd.Flags().StringVar(&order, "order", "asc", "asc or desc")
	cmd.Flags().BoolVar(&includeBorrowed, "include-borrowed", true, "inventory: include borrowed books")
	cmd.Flags().BoolVar(&includeHistory, "include-history", false, "loans: include returned loans")
	cmd.Flags().StringVar(&rangeIDs, "range", "", "qr: id range start-end, defaults to the whole catalog")
	cmd.Flags().StringSliceVar(&selection, "select", nil, "qr: QR codes to print")
	return cmd
}

// parseRange reads "start-end". Empty means the whole catalog.
func parseRange(s string, g *reports.Generator) (int64, int64, error) {
	if s == "" {
		lo, hi, ok := g.Bounds()
		if !ok {
			return 0, 0, reports.ErrNotReady
		}
		return lo, hi, nil
	}
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q", s)
	}
	start, err1 := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	end, err2 := strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("invalid range %q", s)
	}
	return start, end, nil
}

func statusCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the backend and its database",
		RunE: withApp(o, false, func(ctx context.Context, a *app, _ []string) error {
			snap := a.poller().Check(ctx)
			l := a.labels()
			fmt.Printf("%s: %s (%s)\n", l.Get("backend"), l.Get("status_"+string(snap.Backend.State)), snap.Backend.Latency)
			fmt.Printf("%s: %s (%s)\n", l.Get("database"), l.Get("status_"+string(snap.Database.State)), snap.Database.Latency)
			return nil
		}),
	}
}

func shellCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive console with tabs",
		RunE: withApp(o, true, func(ctx context.Context, a *app, _ []string) error {
			if _, err := a.sessions.Restore(ctx); err != nil {
				return err
			}
			gen, err := a.reportGenerator()
			if err != nil {
				return err
			}
			dec, err := a.decoder()
			if err != nil {
				return err
			}
			poller := a.poller()
			go poller.Run(ctx)

			sh := shell.New(shell.Deps{
				Sessions:     a.sessions,
				Settings:     a.settings,
				Inventory:    a.inventory(),
				Members:      a.registryOfMembers(),
				Loans:        a.loanWorkflow(),
				Reports:      gen,
				Scanner:      dec,
				Platform:     a.platform(),
				Status:       poller,
				SetLanguage:  a.api.SetLanguage,
				ReadPassword: readPassword,
				Language:     a.cfg.Language,
				In:           os.Stdin,
				Out:          os.Stdout,
				Logger:       a.logger,
			})
			return sh.Run(ctx)
		}),
	}
}

func serveCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scan companion web server",
		RunE: withSession(o, func(ctx context.Context, a *app, _ []string) error {
			dec, err := a.decoder()
			if err != nil {
				return err
			}
			poller := a.poller()
			go poller.Run(ctx)

			srv := web.NewServer(web.Deps{
				Scanner:   dec,
				Books:     a.lib,
				Status:    poller,
				Templates: templates.FS,
				Language:  a.cfg.Language,
				Registry:  a.registry,
				Logger:    a.logger,
			})
			return srv.ListenAndServe(ctx, a.cfg.ListenAddr)
		}),
	}
}

func sandboxCmd(o *overrides) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory library with demo data (user librarian/librarian)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := o.logLevel
			if level == "" {
				level = "info"
			}
			logger, cleanup, err := logging.New(level, "", os.Stderr)
			if err != nil {
				return err
			}
			defer cleanup()

			fake := fakeapi.New(fakeapi.WithLogger(logger), fakeapi.WithBatchReminders())
			fake.Seed()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			srv := &http.Server{Handler: fake, ReadHeaderTimeout: 10 * time.Second}
			fmt.Printf("sandbox library at http://%s\n", ln.Addr())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()
			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "listen address")
	return cmd
}
