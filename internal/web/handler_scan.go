package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/labels"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/loans"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
)

// allowedImageTypes are the label photo formats the decoder reads.
// http.DetectContentType has no WebP signature, so isWebP checks for it.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type scanResponse struct {
	QRCode   string       `json:"qr_code"`
	Strategy string       `json:"strategy"`
	Resized  bool         `json:"resized"`
	Book     *domain.Book `json:"book,omitempty"`
	Loan     *domain.Loan `json:"loan,omitempty"`
	Message  string       `json:"message"`
}

type scanError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	QRCode  string `json:"qr_code,omitempty"`
	Retry   bool   `json:"retry"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	l := s.labelsFor(r)
	limit := s.scanner.MaxUploadBytes()

	// Leave room for the multipart framing around the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.failScan(w, l, http.StatusRequestEntityTooLarge, qrdecode.KindOversized)
			return
		}
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		s.logger.Error("read upload failed", "error", err)
		return
	}
	if int64(len(imageData)) > limit {
		s.failScan(w, l, http.StatusRequestEntityTooLarge, qrdecode.KindOversized)
		return
	}

	if _, ok := allowedImageMIME(imageData); !ok {
		s.failScan(w, l, http.StatusUnsupportedMediaType, qrdecode.KindUnsupported)
		return
	}

	platform := qrdecode.ProbeUserAgent(r.UserAgent())
	res, err := s.scanner.Decode(r.Context(), imageData, platform)
	if err != nil {
		var derr *qrdecode.DecodeError
		if errors.As(err, &derr) {
			s.failScan(w, l, http.StatusUnprocessableEntity, derr.Kind)
			return
		}
		s.logger.Error("scan failed", "error", err)
		s.failScan(w, l, http.StatusInternalServerError, qrdecode.KindGeneric)
		return
	}

	book, err := s.books.BookByQR(r.Context(), res.Text)
	if errors.Is(err, library.ErrNotFound) {
		s.metrics.observe("book_not_found")
		writeJSON(w, http.StatusNotFound, scanError{
			Error:   "book_not_found",
			Message: l.Get("book_not_found"),
			QRCode:  res.Text,
			Retry:   true,
		}, s.logger)
		return
	}
	if err != nil {
		s.logger.Error("book lookup failed", "qr_code", res.Text, "error", err)
		http.Error(w, "failed to look up book", http.StatusBadGateway)
		return
	}

	sr := loans.ScanResult{Book: *book}
	if book.Borrowed() {
		loan, err := s.books.CurrentLoan(r.Context(), book.QRCode)
		if err != nil {
			s.logger.Warn("current loan lookup failed", "qr_code", book.QRCode, "error", err)
		}
		sr.Loan = loan
	}

	s.metrics.observe("ok")
	writeJSON(w, http.StatusOK, scanResponse{
		QRCode:   res.Text,
		Strategy: res.Strategy,
		Resized:  res.Resized,
		Book:     book,
		Loan:     sr.Loan,
		Message:  sr.Describe(l),
	}, s.logger)
}

func (s *Server) failScan(w http.ResponseWriter, l labels.Labels, status int, kind qrdecode.Kind) {
	s.metrics.observe(string(kind))
	derr := &qrdecode.DecodeError{Kind: kind}
	writeJSON(w, status, scanError{
		Error:   string(kind),
		Message: l.Get(derr.LabelKey()),
		Retry:   derr.Retryable(),
	}, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response failed", "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
