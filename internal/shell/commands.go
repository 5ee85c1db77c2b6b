package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/loans"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
	"github.com/vbonduro/librarydesk/internal/reports"
)

func parseID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

// ask prints a prompt and reads one trimmed line. An empty answer keeps
// current.
func (s *Shell) ask(prompt, current string) (string, bool) {
	if current != "" {
		fmt.Fprintf(s.out, "%s [%s]: ", prompt, current)
	} else {
		fmt.Fprintf(s.out, "%s: ", prompt)
	}
	if !s.in.Scan() {
		return "", false
	}
	v := strings.TrimSpace(s.in.Text())
	if v == "" {
		return current, true
	}
	return v, true
}

func (s *Shell) table(header string, rows [][]string) {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

func (s *Shell) printBooks(books []domain.Book) {
	l := s.labels()
	if len(books) == 0 {
		s.println(l.Get("no_books_found"))
		return
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10), b.QRCode, b.Title, b.Author, l.LoanStatus(b.LoanStatus),
		})
	}
	s.table(strings.Join([]string{"id", "qr", l.Get("title"), l.Get("author"), l.Get("loan_status")}, "\t"), rows)
}

func (s *Shell) printMembers(members []domain.Member) {
	l := s.labels()
	if len(members) == 0 {
		s.println(l.Get("no_members_found"))
		return
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10), m.ParentName, m.KidName, m.Email, strconv.Itoa(m.BorrowedBooksCount),
		})
	}
	s.table(strings.Join([]string{
		"id", l.Get("parent_name_label"), l.Get("kid_name_label"), l.Get("email_label"), l.Get("borrowed_books_count"),
	}, "\t"), rows)
}

func (s *Shell) printLoans(history []domain.Loan, marked func(int64) bool) {
	l := s.labels()
	if len(history) == 0 {
		s.println(l.Get("no_loans_found"))
		return
	}
	rows := make([][]string, 0, len(history))
	for _, ln := range history {
		returned := ln.ReturnedAt.String()
		if ln.Open() {
			returned = l.Get("not_returned")
		}
		mark := " "
		if marked != nil && marked(ln.ID) {
			mark = "*"
		}
		rows = append(rows, []string{
			mark + strconv.FormatInt(ln.ID, 10), ln.BookTitle, ln.BorrowerName,
			ln.BorrowedAt.String(), returned, ln.LastReminderDate.String(),
		})
	}
	s.table(strings.Join([]string{
		" id", l.Get("title"), l.Get("borrowed_by"), l.Get("borrow_date"), l.Get("return_date"), l.Get("last_reminder"),
	}, "\t"), rows)
}

func (s *Shell) inventoryCommand(ctx context.Context, cmd string, args []string) (bool, error) {
	inv := s.d.Inventory
	switch cmd {
	case "list":
		order := inv.Order()
		if len(args) > 0 {
			order = library.ParseOrder(args[0])
		}
		if err := inv.Load(ctx, order); err != nil {
			return true, err
		}
		s.printBooks(inv.Books())
	case "search":
		s.printBooks(inv.Search(strings.Join(args, " ")))
	case "show":
		id, err := parseID(args, "show <id>")
		if err != nil {
			return true, err
		}
		b, ok := inv.Find(id)
		if !ok {
			return true, library.ErrNotFound
		}
		s.showBook(b)
	case "add":
		draft, ok := s.bookForm(library.BookDraft{})
		if !ok {
			return true, nil
		}
		b, err := inv.Add(ctx, draft)
		if err != nil {
			return true, err
		}
		s.println(s.labels().Get("success_book_saved") + " " + b.QRCode)
	case "edit":
		id, err := parseID(args, "edit <id>")
		if err != nil {
			return true, err
		}
		b, ok := inv.Find(id)
		if !ok {
			return true, library.ErrNotFound
		}
		draft, ok := s.bookForm(library.DraftFromBook(b))
		if !ok {
			return true, nil
		}
		if err := inv.Update(ctx, id, draft); err != nil {
			return true, err
		}
		s.println(s.labels().Get("success_book_saved"))
	default:
		return false, nil
	}
	return true, nil
}

func (s *Shell) showBook(b *domain.Book) {
	l := s.labels()
	s.table("", [][]string{
		{"qr", b.QRCode},
		{l.Get("title"), b.Title},
		{l.Get("author"), b.Author},
		{l.Get("description"), b.Description},
		{l.Get("year_of_publication"), strconv.Itoa(int(b.Year))},
		{l.Get("pages"), strconv.Itoa(int(b.Pages))},
		{l.Get("cover_type"), l.CoverType(b.CoverType)},
		{l.Get("select_book_state"), l.Condition(b.Condition)},
		{l.Get("recommended_age"), b.RecommendedAge},
		{l.Get("delivering_parent"), b.DeliveringParent},
		{l.Get("loan_status"), l.LoanStatus(b.LoanStatus)},
	})
}

// bookForm prompts for every editable field, prefilled from d.
func (s *Shell) bookForm(d library.BookDraft) (library.BookDraft, bool) {
	l := s.labels()
	var ok bool
	if d.Title, ok = s.ask(l.Get("title"), d.Title); !ok {
		return d, false
	}
	if d.Author, ok = s.ask(l.Get("author"), d.Author); !ok {
		return d, false
	}
	if d.Description, ok = s.ask(l.Get("description"), d.Description); !ok {
		return d, false
	}
	year, ok := s.ask(l.Get("year_of_publication"), intOrEmpty(d.Year))
	if !ok {
		return d, false
	}
	d.Year = atoiOr(year, -1)
	pages, ok := s.ask(l.Get("pages"), intOrEmpty(d.Pages))
	if !ok {
		return d, false
	}
	d.Pages = atoiOr(pages, -1)
	cover, ok := s.ask(l.Get("cover_type")+" (soft|hard|rigid|battery)", string(d.CoverType))
	if !ok {
		return d, false
	}
	d.CoverType = parseCover(cover)
	cond, ok := s.ask(l.Get("select_book_state")+" (new|good|worn)", string(d.Condition))
	if !ok {
		return d, false
	}
	d.Condition = parseCondition(cond)
	if d.RecommendedAge, ok = s.ask(l.Get("recommended_age"), d.RecommendedAge); !ok {
		return d, false
	}
	if d.DeliveringParent, ok = s.ask(l.Get("delivering_parent"), d.DeliveringParent); !ok {
		return d, false
	}
	return d, true
}

func intOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// atoiOr parses s, returning bad for anything that is not a number so
// validation rejects it.
func atoiOr(s string, bad int) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return bad
	}
	return n
}

func parseCover(s string) domain.CoverType {
	switch s {
	case "soft":
		return domain.CoverSoft
	case "hard":
		return domain.CoverHard
	case "rigid":
		return domain.CoverRigid
	case "battery":
		return domain.CoverBattery
	}
	return domain.CoverType(s)
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

func (s *Shell) membersCommand(ctx context.Context, cmd string, args []string) (bool, error) {
	reg := s.d.Members
	l := s.labels()
	switch cmd {
	case "list":
		if err := reg.Load(ctx); err != nil {
			return true, err
		}
		s.printMembers(reg.Members())
	case "search":
		s.printMembers(reg.Search(strings.Join(args, " ")))
	case "add", "edit":
		var (
			id    int64
			draft library.MemberDraft
		)
		if cmd == "edit" {
			var err error
			if id, err = parseID(args, "edit <id>"); err != nil {
				return true, err
			}
			m, found := reg.Find(id)
			if !found {
				return true, library.ErrNotFound
			}
			draft = library.MemberDraft{ParentName: m.ParentName, KidName: m.KidName, Email: m.Email}
		}
		var ok bool
		if draft.ParentName, ok = s.ask(l.Get("parent_name_label"), draft.ParentName); !ok {
			return true, nil
		}
		if draft.KidName, ok = s.ask(l.Get("kid_name_label"), draft.KidName); !ok {
			return true, nil
		}
		if draft.Email, ok = s.ask(l.Get("email_label"), draft.Email); !ok {
			return true, nil
		}
		if cmd == "edit" {
			return true, reg.Update(ctx, id, draft)
		}
		if _, err := reg.Add(ctx, draft); err != nil {
			return true, err
		}
		s.println(l.Get("success_member_added"))
	case "delete":
		id, err := parseID(args, "delete <id>")
		if err != nil {
			return true, err
		}
		if err := reg.Delete(ctx, id); err != nil {
			return true, err
		}
		s.println(l.Get("success_member_deleted"))
	case "history":
		id, err := parseID(args, "history <id>")
		if err != nil {
			return true, err
		}
		history, err := reg.Loans(ctx, id)
		if err != nil {
			return true, err
		}
		loans.SortLoans(history)
		s.printLoans(history, nil)
	default:
		return false, nil
	}
	return true, nil
}

func (s *Shell) loansCommand(ctx context.Context, cmd string, args []string) (bool, error) {
	w := s.d.Loans
	l := s.labels()
	switch cmd {
	case "mode":
		if len(args) != 1 {
			return true, errUsage("mode borrow|return")
		}
		m, err := loans.ParseMode(args[0])
		if err != nil {
			return true, err
		}
		return true, w.SetMode(ctx, m)
	case "borrower":
		id, err := parseID(args, "borrower <member id>")
		if err != nil {
			return true, err
		}
		return true, w.SelectBorrower(id)
	case "book":
		if len(args) != 1 {
			return true, errUsage("book <qr>")
		}
		return true, w.SelectBook(ctx, args[0])
	case "condition":
		if len(args) != 1 {
			return true, errUsage("condition new|good|worn")
		}
		return true, w.SetCondition(parseCondition(args[0]))
	case "borrow":
		_, err := w.Borrow(ctx)
		if errors.Is(err, loans.ErrNothingSelected) {
			s.println(l.Get("borrow_incomplete"))
			return true, nil
		}
		if err != nil && !errors.Is(err, loans.ErrReloadFailed) {
			return true, err
		}
		s.println(l.Get("borrow_success"))
		return true, err
	case "return":
		err := w.Return(ctx)
		if errors.Is(err, loans.ErrNothingSelected) {
			s.println(l.Get("return_incomplete"))
			return true, nil
		}
		if err != nil && !errors.Is(err, loans.ErrReloadFailed) {
			return true, err
		}
		s.println(l.Get("return_success"))
		return true, err
	case "history":
		if len(args) == 1 {
			if err := w.SetShowAll(ctx, args[0] == "all"); err != nil {
				return true, err
			}
		}
		selected := make(map[int64]bool)
		for _, id := range w.SelectedReminders() {
			selected[id] = true
		}
		s.printLoans(w.History(), func(id int64) bool { return selected[id] })
	case "card":
		id, err := parseID(args, "card <loan id>")
		if err != nil {
			return true, err
		}
		if _, err := w.SelectLoan(ctx, id); err != nil {
			return true, err
		}
		s.showSelection()
	case "remind":
		if len(args) == 1 && args[0] == "all" {
			w.SelectAllOpen()
			return true, nil
		}
		id, err := parseID(args, "remind <loan id>|all")
		if err != nil {
			return true, err
		}
		_, err = w.ToggleReminder(id)
		return true, err
	case "send":
		rep, err := w.SendReminders(ctx)
		if err != nil {
			return true, err
		}
		s.println(fmt.Sprintf(l.Get("reminders_sent"), rep.Sent))
		if rep.Failed() > 0 {
			s.println(fmt.Sprintf(l.Get("reminders_failed"), rep.Failed()))
			for _, f := range rep.Failures {
				s.println(fmt.Sprintf("  %d %s: %s", f.LoanID, f.BorrowerName, f.Reason))
			}
		}
	case "scan":
		if len(args) != 1 {
			return true, errUsage("scan <image>")
		}
		return true, s.scan(ctx, args[0])
	case "show":
		s.showSelection()
	default:
		return false, nil
	}
	return true, nil
}

func (s *Shell) showSelection() {
	l := s.labels()
	w := s.d.Loans
	sel := w.Selection()
	rows := [][]string{{"mode", string(w.Mode())}}
	if sel.Borrower != nil {
		rows = append(rows, []string{l.Get("select_borrower"), sel.Borrower.KidName})
	}
	if sel.Book != nil {
		rows = append(rows, []string{l.Get("select_book"), sel.Book.QRCode + " " + sel.Book.Title})
	}
	if sel.Condition != "" {
		rows = append(rows, []string{l.Get("select_book_state"), l.Condition(sel.Condition)})
	}
	if sel.ReturnTarget != nil {
		rows = append(rows, []string{l.Get("return"), sel.ReturnTarget.QRCode + " " + sel.ReturnTarget.Title})
	}
	s.table("", rows)
}

func (s *Shell) scan(ctx context.Context, path string) error {
	l := s.labels()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	res, err := s.d.Scanner.Decode(ctx, data, s.d.Platform)
	if err != nil {
		var derr *qrdecode.DecodeError
		if errors.As(err, &derr) {
			s.println(l.Get(derr.LabelKey()))
			s.println(l.Get("qr_retry"))
			return nil
		}
		return err
	}
	sr, err := s.d.Loans.Scan(ctx, res.Text)
	if errors.Is(err, library.ErrNotFound) {
		s.println(l.Get("book_not_found"))
		return nil
	}
	if err != nil {
		return err
	}
	s.println(sr.Describe(l))
	if sr.Selected {
		s.showSelection()
	}
	return nil
}

func parseSwitch(args []string, usage string) (bool, error) {
	if len(args) == 1 {
		switch args[0] {
		case "on":
			return true, nil
		case "off":
			return false, nil
		}
	}
	return false, errUsage(usage)
}

func (s *Shell) reportsCommand(ctx context.Context, cmd string, args []string) (bool, error) {
	g := s.d.Reports
	l := s.labels()
	switch cmd {
	case "kind":
		if len(args) != 1 {
			return true, errUsage("kind inventory|loans|qr")
		}
		k, err := reports.ParseKind(args[0])
		if err != nil {
			return true, err
		}
		g.SetKind(k)
		if k == reports.KindQR {
			return true, g.LoadCatalog(ctx)
		}
	case "sort":
		if len(args) == 0 || len(args) > 2 {
			return true, errUsage("sort <column> [asc|desc]")
		}
		order := library.OrderAsc
		if len(args) == 2 {
			order = library.ParseOrder(args[1])
		}
		g.SetSort(args[0], order)
	case "borrowed":
		v, err := parseSwitch(args, "borrowed on|off")
		if err != nil {
			return true, err
		}
		g.SetIncludeBorrowed(v)
	case "history":
		v, err := parseSwitch(args, "history on|off")
		if err != nil {
			return true, err
		}
		g.SetIncludeHistory(v)
	case "range":
		if len(args) != 2 {
			return true, errUsage("range <start> <end>")
		}
		start, err1 := strconv.ParseInt(args[0], 10, 64)
		end, err2 := strconv.ParseInt(args[1], 10, 64)
		if err1 != nil || err2 != nil {
			return true, errUsage("range <start> <end>")
		}
		g.SetRange(start, end)
	case "pick":
		if len(args) != 1 {
			return true, errUsage("pick <qr>")
		}
		g.Toggle(args[0])
	case "clear":
		g.ClearSelection()
	case "catalog":
		if err := g.LoadCatalog(ctx); err != nil {
			return true, err
		}
		rows := make([][]string, 0, len(g.Catalog()))
		for _, e := range g.Catalog() {
			rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.QRCode, e.Title})
		}
		s.table("id\tqr\t"+l.Get("title"), rows)
	case "show":
		f := g.Form()
		s.table("", [][]string{
			{"kind", string(f.Kind)},
			{l.Get("sort_by"), f.SortColumn + " " + string(f.Order)},
			{l.Get("include_borrowed"), strconv.FormatBool(f.IncludeBorrowed)},
			{l.Get("include_history"), strconv.FormatBool(f.IncludeHistory)},
			{"qr", fmt.Sprintf("%s %d-%d %s", f.QRMode, f.StartID, f.EndID, strings.Join(f.Selection, ","))},
		})
	case "generate":
		if err := g.Validate(); err != nil {
			return true, err
		}
		name, err := g.Generate(ctx)
		if err != nil {
			s.println(l.Get("error_generating_report"))
			return true, err
		}
		s.println(fmt.Sprintf(l.Get("report_saved"), name))
	default:
		return false, nil
	}
	return true, nil
}
