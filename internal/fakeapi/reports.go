package fakeapi

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// LastReportQuery returns the query parameters of the latest report request.
func (s *Server) LastReportQuery() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.lastReportArgs))
	for k, v := range s.lastReportArgs {
		out[k] = v
	}
	return out
}

func (s *Server) recordReportArgs(r *http.Request) {
	args := make(map[string]string)
	for k := range r.URL.Query() {
		args[k] = r.URL.Query().Get(k)
	}
	args["language"] = r.Header.Get("Accept-Language")
	s.mu.Lock()
	s.lastReportArgs = args
	s.mu.Unlock()
}

func (s *Server) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	s.recordReportArgs(r)
	q := r.URL.Query()
	includeBorrowed := q.Get("include_borrowed") != "false"

	s.mu.Lock()
	books := sortedBooks(s.books, false)
	s.mu.Unlock()

	var rows [][]string
	for _, b := range books {
		if !includeBorrowed && b.Borrowed() {
			continue
		}
		rows = append(rows, []string{strconv.FormatInt(b.ID, 10), b.Title, b.Author, string(b.LoanStatus)})
	}
	sortRows(rows, map[string]int{"id": 0, "title": 1, "author": 2, "loan_status": 3}, q.Get("sort_column"), q.Get("order_by"))
	writeSheet(w, []string{"id", "title", "author", "loan_status"}, rows)
}

func (s *Server) handleLoansReport(w http.ResponseWriter, r *http.Request) {
	s.recordReportArgs(r)
	q := r.URL.Query()
	includeHistory := q.Get("include_history") == "true"

	s.mu.Lock()
	var rows [][]string
	for _, l := range s.loans {
		if !includeHistory && !l.Open() {
			continue
		}
		author := ""
		if b, ok := s.books[l.BookID]; ok {
			author = b.Author
		}
		rows = append(rows, []string{strconv.FormatInt(l.BookID, 10), l.BookTitle, author, l.BorrowerName, l.BorrowedAt.String(), l.ReturnedAt.String()})
	}
	s.mu.Unlock()

	sortRows(rows, map[string]int{"id": 0, "title": 1, "author": 2}, q.Get("sort_column"), q.Get("order_by"))
	writeSheet(w, []string{"id", "title", "author", "borrower", "borrowed_at", "returned_at"}, rows)
}

func (s *Server) handleQRSheetRange(w http.ResponseWriter, r *http.Request) {
	start, err1 := strconv.ParseInt(r.URL.Query().Get("start_id"), 10, 64)
	end, err2 := strconv.ParseInt(r.URL.Query().Get("end_id"), 10, 64)
	if err1 != nil || err2 != nil || start > end {
		writeError(w, http.StatusBadRequest, "invalid id range")
		return
	}

	s.mu.Lock()
	var codes []string
	for _, b := range sortedBooks(s.books, false) {
		if b.ID >= start && b.ID <= end {
			codes = append(codes, b.QRCode)
		}
	}
	s.mu.Unlock()
	writePDF(w, codes)
}

func (s *Server) handleQRSheetSelection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QRCodes []string `json:"qr_codes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.QRCodes) == 0 {
		writeError(w, http.StatusBadRequest, "qr_codes is required")
		return
	}
	writePDF(w, body.QRCodes)
}

func sortRows(rows [][]string, columns map[string]int, column, order string) {
	col, ok := columns[column]
	if !ok {
		col = columns["title"]
	}
	desc := order != "asc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][col], rows[j][col]
		if col == 0 {
			ai, _ := strconv.Atoi(a)
			bi, _ := strconv.Atoi(b)
			if desc {
				return ai > bi
			}
			return ai < bi
		}
		if desc {
			return a > b
		}
		return a < b
	})
}

// writeSheet answers with a zip container holding the rows as CSV. It is
// not a full workbook but carries the xlsx magic and content type.
func writeSheet(w http.ResponseWriter, header []string, rows [][]string) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("report.csv")
	if err == nil {
		cw := csv.NewWriter(f)
		_ = cw.Write(header)
		_ = cw.WriteAll(rows)
		err = cw.Error()
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	_, _ = w.Write(buf.Bytes())
}

func writePDF(w http.ResponseWriter, codes []string) {
	w.Header().Set("Content-Type", pdfContentType)
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% labels: %d\n%s\n%%%%EOF\n", len(codes), strings.Join(codes, "\n"))
}

// ReadSheet unpacks a sheet produced by the report endpoints.
func ReadSheet(data []byte) ([][]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != "report.csv" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return csv.NewReader(rc).ReadAll()
	}
	return nil, fmt.Errorf("no report.csv in sheet")
}
