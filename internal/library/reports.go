package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// Payload is a downloaded report.
type Payload struct {
	Data        []byte
	ContentType string
}

type InventoryReportQuery struct {
	Order           Order
	SortColumn      string
	IncludeBorrowed bool
}

type LoansReportQuery struct {
	Order          Order
	SortColumn     string
	IncludeHistory bool
}

func (c *Client) InventoryReport(ctx context.Context, q InventoryReportQuery) (*Payload, error) {
	params := url.Values{
		"order_by":         {string(q.Order)},
		"sort_column":      {q.SortColumn},
		"include_borrowed": {strconv.FormatBool(q.IncludeBorrowed)},
	}
	return c.download(ctx, http.MethodGet, "/api/generate_inventory_report", params, nil)
}

func (c *Client) LoansReport(ctx context.Context, q LoansReportQuery) (*Payload, error) {
	params := url.Values{
		"order_by":        {string(q.Order)},
		"sort_column":     {q.SortColumn},
		"include_history": {strconv.FormatBool(q.IncludeHistory)},
	}
	return c.download(ctx, http.MethodGet, "/api/generate_books_report", params, nil)
}

// QRCatalog lists the books that can be put on a label sheet.
func (c *Client) QRCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	if err := c.api.GetJSON(ctx, "/api/books/qr_catalog", nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to load qr catalog: %w", err)
	}
	return entries, nil
}

func (c *Client) QRSheetRange(ctx context.Context, startID, endID int64) (*Payload, error) {
	params := url.Values{
		"start_id": {strconv.FormatInt(startID, 10)},
		"end_id":   {strconv.FormatInt(endID, 10)},
	}
	return c.download(ctx, http.MethodGet, "/api/generate_qr_pdf", params, nil)
}

func (c *Client) QRSheetSelection(ctx context.Context, codes []string) (*Payload, error) {
	body := map[string][]string{"qr_codes": codes}
	return c.download(ctx, http.MethodPost, "/api/generate_qr_pdf", nil, body)
}

func (c *Client) download(ctx context.Context, method, path string, q url.Values, body any) (*Payload, error) {
	data, ct, err := c.api.Download(ctx, method, path, q, body)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to download %s: empty response", path)
	}
	return &Payload{Data: data, ContentType: ct}, nil
}
