package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/ledger"
	"github.com/JonMunkholm/ledger/internal/logging"
)

// uploadField is the multipart field carrying the ledger file.
const uploadField = "csvFile"

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// uploadResponse flattens the ingestion report next to the summary message.
type uploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	*ledger.Report
}

// handleUpload ingests one CSV ledger file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, err)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %w", ledger.ErrReadInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(w, r, badRequest("FILE004"))
			return
		}
		respondError(w, r, fmt.Errorf("%w: %w", ledger.ErrReadInput, err))
		return
	}
	defer file.Close()

	if !isCSV(header.Filename, header.Header.Get("Content-Type")) {
		respondError(w, r, badRequest("FILE002"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", ledger.ErrReadInput, err))
		return
	}

	logging.FromContext(r.Context()).Info("upload received",
		"file", header.Filename, "bytes", len(data))

	report, err := s.service.UploadLedger(r.Context(), principal(r), filepath.Base(header.Filename), data)
	if report == nil {
		respondError(w, r, err)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Warn("upload finished with error", "file", header.Filename, "error", err)
	}
	writeJSON(w, http.StatusOK, uploadResponse{Status: "success", Message: report.Summary(), Report: report})
}

// isCSV accepts a .csv file name or a CSV media type.
func isCSV(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "text/csv" || mt == "application/csv")
}

// handleListEntries returns one page of entries in chronological order.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	from, err := parseDayParam(r, "startDate", s.loc, false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	to, err := parseDayParam(r, "endDate", s.loc, true)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.service.ListEntries(r.Context(), core.ListEntriesParams{
		Page:         parseIntParam(r, "page", 1),
		Limit:        parseIntParam(r, "limit", core.DefaultPageSize),
		UploadedFrom: from,
		UploadedTo:   to,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type analyticsResponse struct {
	Period int                   `json:"period"`
	Data   []core.AnalyticsPoint `json:"data"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	period := parseIntParam(r, "period", core.DefaultAnalyticsPeriod)
	points, err := s.service.Analytics(r.Context(), period)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyticsResponse{Period: period, Data: points})
}

// handleExport downloads every entry as an XLSX workbook. The workbook is
// built in memory first so a failure can still be reported as JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportEntries(r.Context(), &buf); err != nil {
		respondError(w, r, err)
		return
	}

	name := fmt.Sprintf("ledger-%s.xlsx", time.Now().In(s.loc).Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write export", "error", err)
	}
}

// handleEntryByDate looks up ?date= in any accepted date format.
func (s *Server) handleEntryByDate(w http.ResponseWriter, r *http.Request) {
	e, err := s.service.EntryByDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.DeleteEntry(r.Context(), principal(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Ledger entry deleted", nil)
}
