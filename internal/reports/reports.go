// Package reports holds the report form: which report, its parameters, and
// the download into the report store.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/reportstore"
)

type Kind string

const (
	KindNone      Kind = ""
	KindInventory Kind = "inventory"
	KindLoans     Kind = "loans"
	KindQR        Kind = "qr"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindInventory, KindLoans, KindQR:
		return Kind(s), nil
	}
	return KindNone, fmt.Errorf("unknown report kind %q", s)
}

// QRMode picks how the label sheet is scoped.
type QRMode string

const (
	QRRange     QRMode = "range"
	QRSelection QRMode = "selection"
)

// MaxLabels caps one QR sheet.
const MaxLabels = 500

var (
	InventoryColumns = []string{"title", "author", "id", "loan_status"}
	LoansColumns     = []string{"title", "author", "id"}
)

var ErrNotReady = errors.New("report is not ready")

// Library is the part of the library client used for reports.
type Library interface {
	InventoryReport(ctx context.Context, q library.InventoryReportQuery) (*library.Payload, error)
	LoansReport(ctx context.Context, q library.LoansReportQuery) (*library.Payload, error)
	QRCatalog(ctx context.Context) ([]domain.CatalogEntry, error)
	QRSheetRange(ctx context.Context, startID, endID int64) (*library.Payload, error)
	QRSheetSelection(ctx context.Context, codes []string) (*library.Payload, error)
}

// Form is the state of the report screen. Switching kind resets it.
type Form struct {
	Kind            Kind
	SortColumn      string
	Order           library.Order
	IncludeBorrowed bool
	IncludeHistory  bool
	QRMode          QRMode
	StartID         int64
	EndID           int64
	Selection       []string
}

func NewForm(kind Kind) Form {
	return Form{
		Kind:            kind,
		Order:           library.OrderAsc,
		IncludeBorrowed: true,
		QRMode:          QRRange,
	}
}

type Generator struct {
	lib     Library
	store   reportstore.ReportStore
	logger  *slog.Logger
	form    Form
	catalog []domain.CatalogEntry
}

func NewGenerator(lib Library, store reportstore.ReportStore, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{lib: lib, store: store, logger: logger}
}

func (g *Generator) Form() Form {
	f := g.form
	f.Selection = append([]string(nil), g.form.Selection...)
	return f
}

// SetKind switches report kind; the previous kind's parameters are dropped.
func (g *Generator) SetKind(k Kind) {
	g.form = NewForm(k)
}

func (g *Generator) SetSort(column string, order library.Order) {
	g.form.SortColumn = column
	g.form.Order = order
}

func (g *Generator) SetIncludeBorrowed(v bool) { g.form.IncludeBorrowed = v }

func (g *Generator) SetIncludeHistory(v bool) { g.form.IncludeHistory = v }

func (g *Generator) SetRange(start, end int64) {
	g.form.QRMode = QRRange
	g.form.StartID, g.form.EndID = start, end
}

// Toggle adds or removes a QR code from the label selection and switches
// the sheet to selection mode.
func (g *Generator) Toggle(qr string) bool {
	g.form.QRMode = QRSelection
	for i, c := range g.form.Selection {
		if c == qr {
			g.form.Selection = append(g.form.Selection[:i], g.form.Selection[i+1:]...)
			return false
		}
	}
	g.form.Selection = append(g.form.Selection, qr)
	return true
}

func (g *Generator) ClearSelection() {
	g.form.Selection = nil
}

// LoadCatalog fetches the selectable books, ordered by id.
func (g *Generator) LoadCatalog(ctx context.Context) error {
	entries, err := g.lib.QRCatalog(ctx)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	g.catalog = entries
	return nil
}

func (g *Generator) Catalog() []domain.CatalogEntry {
	return append([]domain.CatalogEntry(nil), g.catalog...)
}

// Bounds returns the smallest and largest catalog id.
func (g *Generator) Bounds() (lo, hi int64, ok bool) {
	if len(g.catalog) == 0 {
		return 0, 0, false
	}
	return g.catalog[0].ID, g.catalog[len(g.catalog)-1].ID, true
}

// Ready reports whether Generate may be called.
func (g *Generator) Ready() bool {
	return g.Validate() == nil
}

// Validate explains why the form cannot be generated yet.
func (g *Generator) Validate() error {
	f := g.form
	switch f.Kind {
	case KindInventory:
		return checkColumn(f.SortColumn, InventoryColumns)
	case KindLoans:
		return checkColumn(f.SortColumn, LoansColumns)
	case KindQR:
		if f.QRMode == QRSelection {
			return g.validateSelection()
		}
		return g.validateRange()
	default:
		return fmt.Errorf("%w: no report kind chosen", ErrNotReady)
	}
}

func checkColumn(column string, allowed []string) error {
	for _, c := range allowed {
		if c == column {
			return nil
		}
	}
	if column == "" {
		return fmt.Errorf("%w: no sort column chosen", ErrNotReady)
	}
	return fmt.Errorf("%w: cannot sort by %q", ErrNotReady, column)
}

func (g *Generator) validateRange() error {
	f := g.form
	lo, hi, ok := g.Bounds()
	switch {
	case !ok:
		return fmt.Errorf("%w: catalog is empty", ErrNotReady)
	case f.StartID <= 0 || f.EndID <= 0:
		return fmt.Errorf("%w: start and end ids are required", ErrNotReady)
	case f.StartID > f.EndID:
		return fmt.Errorf("%w: start id %d is after end id %d", ErrNotReady, f.StartID, f.EndID)
	case f.StartID < lo || f.EndID > hi:
		return fmt.Errorf("%w: ids must be between %d and %d", ErrNotReady, lo, hi)
	case f.EndID-f.StartID+1 > MaxLabels:
		return fmt.Errorf("%w: at most %d labels per sheet", ErrNotReady, MaxLabels)
	}
	return nil
}

func (g *Generator) validateSelection() error {
	sel := g.form.Selection
	if len(sel) == 0 {
		return fmt.Errorf("%w: no books selected", ErrNotReady)
	}
	if len(sel) > MaxLabels {
		return fmt.Errorf("%w: at most %d labels per sheet", ErrNotReady, MaxLabels)
	}
	known := make(map[string]bool, len(g.catalog))
	for _, e := range g.catalog {
		known[e.QRCode] = true
	}
	for _, qr := range sel {
		if !known[qr] {
			return fmt.Errorf("%w: %q is not in the catalog", ErrNotReady, qr)
		}
	}
	return nil
}

// FileName is where a report of kind k is saved.
func FileName(k Kind) string {
	if k == KindQR {
		return "qr_codes.pdf"
	}
	return string(k) + "_report.xlsx"
}

// Generate downloads the report described by the form and saves it. It
// returns the saved location.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	f := g.form

	var (
		payload *library.Payload
		err     error
	)
	switch f.Kind {
	case KindInventory:
		payload, err = g.lib.InventoryReport(ctx, library.InventoryReportQuery{
			Order: f.Order, SortColumn: f.SortColumn, IncludeBorrowed: f.IncludeBorrowed,
		})
	case KindLoans:
		payload, err = g.lib.LoansReport(ctx, library.LoansReportQuery{
			Order: f.Order, SortColumn: f.SortColumn, IncludeHistory: f.IncludeHistory,
		})
	case KindQR:
		if f.QRMode == QRSelection {
			payload, err = g.lib.QRSheetSelection(ctx, f.Selection)
		} else {
			payload, err = g.lib.QRSheetRange(ctx, f.StartID, f.EndID)
		}
	}
	if err != nil {
		return "", err
	}

	loc, err := g.store.Save(ctx, FileName(f.Kind), payload.ContentType, bytes.NewReader(payload.Data))
	if err != nil {
		return "", fmt.Errorf("failed to save %s report: %w", f.Kind, err)
	}
	g.logger.Info("report generated", "kind", f.Kind, "bytes", len(payload.Data), "path", loc)
	return loc, nil
}
