/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/google/uuid"

	"github.com/humaidq/labvault/db"
	"github.com/humaidq/labvault/labparse"
	"github.com/humaidq/labvault/pdftext"
	"github.com/humaidq/labvault/storage"
)

const (
	defaultMaxUploadBytes = 20 << 20
	uploadFormField       = "pdfFile"
)

// UploadConfig wires the collaborators used by report uploads.
type UploadConfig struct {
	Store     storage.Store
	Extractor *labparse.Extractor
	// MaxBytes caps the size of an uploaded PDF.
	MaxBytes int64
}

var uploads = UploadConfig{
	Extractor: labparse.NewDefault(labparse.Options{}),
	MaxBytes:  defaultMaxUploadBytes,
}

// ConfigureUploads sets the storage backend, extractor and size limit.
func ConfigureUploads(cfg UploadConfig) {
	if cfg.Extractor == nil {
		cfg.Extractor = labparse.NewDefault(labparse.Options{})
	}

	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxUploadBytes
	}

	uploads = cfg
}

var (
	extractPDFFn       = pdftext.Extract
	saveReportFn       = db.SaveReport
	listReportsFn      = db.ListReports
	getReportForUserFn = db.GetReportForUser
	deleteReportFn     = db.DeleteReport
	getHealthProfileFn = db.GetHealthProfile
)

func reportsBreadcrumb(isCurrent bool) BreadcrumbItem {
	return BreadcrumbItem{Name: "Reports", URL: "/reports", IsCurrent: isCurrent}
}

// UploadForm renders the upload page
func UploadForm(t template.Template, data template.Data) {
	data["IsUpload"] = true
	data["MaxUploadMB"] = uploads.MaxBytes >> 20
	data["Breadcrumbs"] = []BreadcrumbItem{
		reportsBreadcrumb(false),
		{Name: "Upload", URL: "/upload", IsCurrent: true},
	}
	t.HTML(http.StatusOK, "upload")
}

// readUpload returns the uploaded PDF and its original file name.
func readUpload(r *http.Request, maxBytes int64) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", errFileTooLarge
		}

		return nil, "", fmt.Errorf("failed to parse upload form: %w", err)
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", errMissingFile
		}

		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, "", errFileTooLarge
	}

	if !isPDFUpload(header) {
		return nil, "", errNotPDFUpload
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, "", errFileTooLarge
	}

	if len(data) == 0 {
		return nil, "", errMissingFile
	}

	return data, header.Filename, nil
}

func isPDFUpload(header *multipart.FileHeader) bool {
	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "application/pdf") {
		return true
	}

	// Some browsers send a generic type; fall back to the extension.
	return contentType == "application/octet-stream" &&
		strings.EqualFold(filepath.Ext(header.Filename), ".pdf")
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, errMissingFile):
		return "No PDF file was uploaded"
	case errors.Is(err, errNotPDFUpload), errors.Is(err, pdftext.ErrNotPDF):
		return "File must be a PDF"
	case errors.Is(err, errFileTooLarge):
		return fmt.Sprintf("File is larger than the %d MB limit", uploads.MaxBytes>>20)
	case errors.Is(err, pdftext.ErrNoText):
		return "No text could be read from this PDF. Scanned reports are not supported."
	default:
		return "Failed to process the PDF file"
	}
}

// reportSex picks the sex used for sex-specific ranges: the profile first,
// then the sex printed on the report.
func reportSex(profile *db.HealthProfile, printed *labparse.PatientInfo) labparse.Sex {
	if sex := profile.Sex(); sex != labparse.SexUnknown {
		return sex
	}

	if printed != nil {
		return labparse.ParseSex(printed.Gender)
	}

	return labparse.SexUnknown
}

// Upload stores a PDF report, extracts its values and saves the result.
func Upload(c flamego.Context, s session.Session) {
	userID, ok := getSessionUserID(s)
	if !ok {
		logAccessDenied(c, s, "session_user_missing", http.StatusSeeOther, "/login")
		c.Redirect("/login", http.StatusSeeOther)

		return
	}

	if uploads.Store == nil {
		logger.Error("Upload rejected", "error", errStoreNotConfigured)
		SetErrorFlash(s, uploadErrorMessage(errStoreNotConfigured))
		c.Redirect("/upload", http.StatusSeeOther)

		return
	}

	ctx := c.Request().Context()

	data, fileName, err := readUpload(c.Request().Request, uploads.MaxBytes)
	if err != nil {
		logger.Warn("Rejected upload", "user_id", userID, "error", err)
		SetErrorFlash(s, uploadErrorMessage(err))
		c.Redirect("/upload", http.StatusSeeOther)

		return
	}

	doc, err := extractPDFFn(data)
	if err != nil {
		logger.Warn("Failed to read PDF", "user_id", userID, "file", fileName, "error", err)
		SetErrorFlash(s, uploadErrorMessage(err))
		c.Redirect("/upload", http.StatusSeeOther)

		return
	}

	profile, err := getHealthProfileFn(ctx, userID)
	if err != nil {
		logger.Error("Failed to load health profile", "user_id", userID, "error", err)
	}

	result := uploads.Extractor.Extract(doc.Text, profile.Sex())

	sex := reportSex(profile, result.PatientInfo)
	if sex != profile.Sex() {
		result = uploads.Extractor.Extract(doc.Text, sex)
	}

	storedName := storage.StoredName(userID, time.Now(), fileName)
	if err := uploads.Store.Save(ctx, storedName, data); err != nil {
		logger.Error("Failed to store report file", "stored_name", storedName, "error", err)
		SetErrorFlash(s, uploadErrorMessage(err))
		c.Redirect("/upload", http.StatusSeeOther)

		return
	}

	reportID, err := saveReportFn(ctx, db.SaveReportInput{
		UserID:     userID,
		FileName:   fileName,
		StoredName: storedName,
		FileSize:   int64(len(data)),
		Sex:        sex,
		Result:     result,
	})
	if err != nil {
		logger.Error("Failed to save report", "stored_name", storedName, "error", err)

		if rmErr := uploads.Store.Remove(ctx, storedName); rmErr != nil {
			logger.Error("Failed to remove orphaned report file", "stored_name", storedName, "error", rmErr)
		}

		SetErrorFlash(s, uploadErrorMessage(err))
		c.Redirect("/upload", http.StatusSeeOther)

		return
	}

	logger.Info("Processed report",
		"report_id", reportID,
		"user_id", userID,
		"pages", doc.PageCount,
		"skipped_pages", len(doc.SkippedPages),
		"tests", len(result.TestResults),
		"abnormal", len(result.Abnormal()),
		"invalid", len(result.Invalid()),
		"sex", string(sex),
	)

	switch {
	case len(result.TestResults) == 0:
		SetWarningFlash(s, "Report uploaded, but no known blood tests were found in it")
	case len(result.Abnormal()) > 0:
		SetWarningFlash(s, fmt.Sprintf("Report processed: %d of %d results are outside the normal range",
			len(result.Abnormal()), len(result.TestResults)))
	default:
		SetSuccessFlash(s, "Report processed: all results are within the normal range")
	}

	c.Redirect("/reports/"+reportID, http.StatusSeeOther)
}

// ListReports renders the reports of the signed-in user
func ListReports(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	data["IsReports"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{reportsBreadcrumb(true)}

	userID, ok := getSessionUserID(s)
	if !ok {
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	reports, err := listReportsFn(c.Request().Context(), userID)
	if err != nil {
		logger.Error("Failed to list reports", "user_id", userID, "error", err)
		data["Error"] = "Failed to load reports"
		t.HTML(http.StatusInternalServerError, "reports")

		return
	}

	data["Reports"] = reports
	t.HTML(http.StatusOK, "reports")
}

// loadOwnedReport fetches the report named in the route and renders the
// error page when it is missing or belongs to someone else. It returns nil
// after rendering.
func loadOwnedReport(c flamego.Context, s session.Session, t template.Template, data template.Data) *db.ReportDetail {
	userID, ok := getSessionUserID(s)
	if !ok {
		c.Redirect("/login", http.StatusSeeOther)
		return nil
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		renderError(t, data, http.StatusNotFound, "Report not found")
		return nil
	}

	report, err := getReportForUserFn(c.Request().Context(), userID, id)
	switch {
	case err == nil:
		return report
	case errors.Is(err, db.ErrReportNotFound):
		renderError(t, data, http.StatusNotFound, "Report not found")
	case errors.Is(err, db.ErrReportForbidden):
		logAccessDenied(c, s, "report_owner_mismatch", http.StatusForbidden, "", "report_id", id)
		renderError(t, data, http.StatusForbidden, "You do not have access to this report")
	default:
		logger.Error("Failed to load report", "report_id", id, "error", err)
		renderError(t, data, http.StatusInternalServerError, "Failed to load report")
	}

	return nil
}

// ViewReport renders one report with its results and recommendations
func ViewReport(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	data["IsReports"] = true

	report := loadOwnedReport(c, s, t, data)
	if report == nil {
		return
	}

	data["Report"] = report
	data["AbnormalCount"] = report.AbnormalCount()
	data["Breadcrumbs"] = []BreadcrumbItem{
		reportsBreadcrumb(false),
		{Name: report.FileName, URL: "/reports/" + report.ID.String(), IsCurrent: true},
	}
	t.HTML(http.StatusOK, "report_view")
}

// DownloadReportFile streams the original PDF of a report
func DownloadReportFile(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	report := loadOwnedReport(c, s, t, data)
	if report == nil {
		return
	}

	if uploads.Store == nil {
		renderError(t, data, http.StatusInternalServerError, "Report storage is not configured")
		return
	}

	file, err := uploads.Store.Open(c.Request().Context(), report.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			logger.Warn("Report file missing", "report_id", report.ID, "stored_name", report.StoredName)
			renderError(t, data, http.StatusNotFound, "The original file is no longer available")

			return
		}

		logger.Error("Failed to open report file", "report_id", report.ID, "error", err)
		renderError(t, data, http.StatusInternalServerError, "Failed to load file")

		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Error closing report file", "report_id", report.ID, "error", err)
		}
	}()

	headers := c.ResponseWriter().Header()
	headers.Set("Content-Type", "application/pdf")
	headers.Set("Content-Disposition", "attachment; filename=\""+sanitizeFilenameForHeader(report.FileName)+"\"")
	headers.Set("X-Content-Type-Options", "nosniff")

	if report.FileSize > 0 {
		headers.Set("Content-Length", fmt.Sprint(report.FileSize))
	}

	c.ResponseWriter().WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.ResponseWriter(), file); err != nil {
		logger.Error("Error writing report file", "report_id", report.ID, "error", err)
	}
}

// DeleteReport removes a report and its stored file
func DeleteReport(c flamego.Context, s session.Session) {
	userID, ok := getSessionUserID(s)
	if !ok {
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		SetErrorFlash(s, "Report not found")
		c.Redirect("/reports", http.StatusSeeOther)

		return
	}

	storedName, err := deleteReportFn(ctx, userID, id)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrReportNotFound):
			SetErrorFlash(s, "Report not found")
		case errors.Is(err, db.ErrReportForbidden):
			logAccessDenied(c, s, "report_owner_mismatch", http.StatusSeeOther, "/reports", "report_id", id)
			SetErrorFlash(s, "You do not have access to this report")
		default:
			logger.Error("Failed to delete report", "report_id", id, "error", err)
			SetErrorFlash(s, "Failed to delete report")
		}

		c.Redirect("/reports", http.StatusSeeOther)

		return
	}

	if uploads.Store != nil {
		if err := uploads.Store.Remove(ctx, storedName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			logger.Error("Failed to remove report file", "stored_name", storedName, "error", err)
		}
	}

	logger.Info("Deleted report", "report_id", id, "user_id", userID)
	SetSuccessFlash(s, "Report deleted")
	c.Redirect("/reports", http.StatusSeeOther)
}

// sanitizeFilenameForHeader keeps a filename safe inside a quoted header value.
func sanitizeFilenameForHeader(name string) string {
	name = filepath.Base(strings.TrimSpace(name))

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, name)

	if cleaned == "" || cleaned == "." || cleaned == "/" {
		return "report.pdf"
	}

	return cleaned
}

// BreadcrumbItem represents a single breadcrumb navigation item
type BreadcrumbItem struct {
	Name      string
	URL       string
	IsCurrent bool
}

func renderError(t template.Template, data template.Data, status int, message string) {
	data["Error"] = message
	data["Status"] = status
	t.HTML(status, "error")
}
