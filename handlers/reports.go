// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/dv-appraisal/auth"
	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/mailer"
	"github.com/danielhkuo/dv-appraisal/metrics"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/report"
)

// ShareLinkTTL is how long a signed report link stays valid
const ShareLinkTTL = 7 * 24 * time.Hour

// ReportHandler renders, e-mails and shares the appraisal documents
type ReportHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewReportHandler(db *sql.DB, cfg cliparse.Config, svc Services) *ReportHandler {
	return &ReportHandler{db: db, cfg: cfg, svc: svc.withDefaults()}
}

// document is a rendered appraisal document ready to be recorded
type document struct {
	appraisal   models.Appraisal
	valuationID string
	data        report.Data
}

// Report handles GET /appraisals/{id}/report
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	h.serveHTML(w, r, models.DocumentReport, report.RenderReportHTML)
}

// DemandLetter handles GET /appraisals/{id}/demand-letter
func (h *ReportHandler) DemandLetter(w http.ResponseWriter, r *http.Request) {
	h.serveHTML(w, r, models.DocumentDemandLetter, report.RenderDemandLetterHTML)
}

// ReportPDF handles GET /appraisals/{id}/report.pdf
func (h *ReportHandler) ReportPDF(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	doc, ok := h.prepare(w, r)
	if !ok {
		return
	}

	pdf, err := h.renderPDF(r.Context(), doc.data, report.RenderReportHTML)
	if err != nil {
		h.pdfError(w, r, doc.appraisal.ID, err)
		return
	}

	if err := h.record(r.Context(), doc, models.DocumentReport, models.FormatPDF, "", ""); err != nil {
		log.Error("failed to record report", "appraisal_id", doc.appraisal.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, pdfFilename("dv-appraisal", doc.appraisal.ID)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// Email handles POST /appraisals/{id}/report/email. The report PDF is
// attached, and the demand letter too when asked for.
func (h *ReportHandler) Email(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req models.EmailReportRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	doc, ok := h.prepare(w, r)
	if !ok {
		return
	}

	to := req.To
	if strings.TrimSpace(to) == "" {
		to = doc.data.Owner.Email
	}
	to, valid := normalizeEmail(to)
	if !valid {
		middleware.FieldErrorResponse(w, "Invalid email request", map[string][]string{"to": {"must be a valid address"}})
		return
	}

	reportPDF, err := h.renderPDF(r.Context(), doc.data, report.RenderReportHTML)
	if err != nil {
		h.pdfError(w, r, doc.appraisal.ID, err)
		return
	}
	attachments := []mailer.Attachment{{Filename: pdfFilename("dv-appraisal", doc.appraisal.ID), Content: reportPDF}}

	if req.IncludeDemandLetter {
		letterPDF, err := h.renderPDF(r.Context(), doc.data, report.RenderDemandLetterHTML)
		if err != nil {
			h.pdfError(w, r, doc.appraisal.ID, err)
			return
		}
		attachments = append(attachments, mailer.Attachment{Filename: pdfFilename("dv-demand-letter", doc.appraisal.ID), Content: letterPDF})
	}

	emailID, err := h.svc.Mailer.Send(r.Context(), mailer.Message{
		To:          to,
		Subject:     emailSubject(doc.data),
		HTML:        emailBody(doc.data),
		Text:        emailText(doc.data),
		Attachments: attachments,
	})
	if errors.Is(err, mailer.ErrMailDisabled) {
		metrics.IncEmail("disabled")
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Email delivery is not available")
		return
	}
	if err != nil {
		metrics.IncEmail("error")
		log.Error("failed to send report email", "appraisal_id", doc.appraisal.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to send email")
		return
	}
	metrics.IncEmail("sent")

	if err := h.record(r.Context(), doc, models.DocumentReport, models.FormatPDF, to, emailID); err != nil {
		log.Error("failed to record emailed report", "appraisal_id", doc.appraisal.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if req.IncludeDemandLetter {
		if err := h.record(r.Context(), doc, models.DocumentDemandLetter, models.FormatPDF, to, emailID); err != nil {
			log.Error("failed to record emailed demand letter", "appraisal_id", doc.appraisal.ID, "error", err)
		}
	}

	log.Info("report emailed", "appraisal_id", doc.appraisal.ID, "email_id", emailID)
	middleware.JSONResponse(w, http.StatusOK, models.EmailReportResponse{EmailID: emailID, To: to})
}

// Share handles GET /appraisals/{id}/share, returning a signed read-only link
func (h *ReportHandler) Share(w http.ResponseWriter, r *http.Request) {
	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}

	if _, _, err := latestValuation(r.Context(), h.db, a.ID); err != nil {
		if errors.Is(err, errNoValuation) {
			middleware.ErrorResponse(w, http.StatusConflict, "Run the full valuation before sharing the report")
			return
		}
		logging.FromContext(r.Context()).Error("failed to load valuation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	expires := h.svc.now().Add(ShareLinkTTL).Truncate(time.Second)
	middleware.JSONResponse(w, http.StatusOK, models.ShareResponse{
		URL:       h.shareURL(a.ID, expires),
		ExpiresAt: expires,
	})
}

// Shared handles GET /shared/{id}?exp=&sig=, the public view of a shared report
func (h *ReportHandler) Shared(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id := r.PathValue("id")
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusForbidden, "Invalid link")
		return
	}

	err = auth.ValidateReportLink(id, exp, r.URL.Query().Get("sig"), h.cfg.SessionSecret, h.svc.now())
	if errors.Is(err, auth.ErrLinkExpired) {
		middleware.ErrorResponse(w, http.StatusGone, "Link has expired")
		return
	}
	if err != nil {
		middleware.ErrorResponse(w, http.StatusForbidden, "Invalid link")
		return
	}

	a, err := loadAppraisal(r.Context(), h.db, id, "")
	if errors.Is(err, errAppraisalNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		log.Error("failed to load shared appraisal", "appraisal_id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	_, fv, err := latestValuation(r.Context(), h.db, a.ID)
	if errors.Is(err, errNoValuation) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		log.Error("failed to load valuation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var owner report.Party
	err = h.db.QueryRowContext(r.Context(), "SELECT name FROM app_user WHERE id = $1", a.UserID).Scan(&owner.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to load owner", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	page, err := report.RenderReportHTML(report.Data{
		AppraisalID: a.ID,
		GeneratedAt: h.svc.now(),
		Owner:       owner,
		Vehicle:     a.Vehicle,
		Valuation:   fv,
		InsurerName: a.InsurerName,
		ClaimNumber: a.ClaimNumber,
	})
	if err != nil {
		log.Error("failed to render shared report", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	metrics.IncReportRendered(models.DocumentReport, models.FormatHTML)
	writeHTML(w, page)
}

func (h *ReportHandler) serveHTML(w http.ResponseWriter, r *http.Request, document string, render func(report.Data) ([]byte, error)) {
	log := logging.FromContext(r.Context())

	doc, ok := h.prepare(w, r)
	if !ok {
		return
	}

	page, err := render(doc.data)
	if err != nil {
		log.Error("failed to render document", "appraisal_id", doc.appraisal.ID, "document", document, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to render document")
		return
	}

	if err := h.record(r.Context(), doc, document, models.FormatHTML, "", ""); err != nil {
		log.Error("failed to record document", "appraisal_id", doc.appraisal.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeHTML(w, page)
}

// prepare loads the caller's paid appraisal and its latest valuation
func (h *ReportHandler) prepare(w http.ResponseWriter, r *http.Request) (document, bool) {
	a, user, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return document{}, false
	}
	if !isPaid(a) {
		middleware.ErrorResponse(w, http.StatusPaymentRequired, "Pay for the appraisal to get the report")
		return document{}, false
	}

	valuationID, fv, err := latestValuation(r.Context(), h.db, a.ID)
	if errors.Is(err, errNoValuation) {
		middleware.ErrorResponse(w, http.StatusConflict, "Run the full valuation first")
		return document{}, false
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load valuation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return document{}, false
	}

	now := h.svc.now()
	return document{
		appraisal:   a,
		valuationID: valuationID,
		data: report.Data{
			AppraisalID: a.ID,
			GeneratedAt: now,
			Owner:       report.Party{Name: user.Name, Email: user.Email},
			Vehicle:     a.Vehicle,
			Valuation:   fv,
			InsurerName: a.InsurerName,
			ClaimNumber: a.ClaimNumber,
			ShareURL:    h.shareURL(a.ID, now.Add(ShareLinkTTL).Truncate(time.Second)),
		},
	}, true
}

func (h *ReportHandler) renderPDF(ctx context.Context, d report.Data, render func(report.Data) ([]byte, error)) ([]byte, error) {
	page, err := render(d)
	if err != nil {
		return nil, err
	}
	return h.svc.PDF.RenderPDF(ctx, page)
}

func (h *ReportHandler) pdfError(w http.ResponseWriter, r *http.Request, appraisalID string, err error) {
	if errors.Is(err, report.ErrPDFDisabled) {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "PDF rendering is not available")
		return
	}
	logging.FromContext(r.Context()).Error("failed to render pdf", "appraisal_id", appraisalID, "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to render PDF")
}

// record logs a delivered document. The first document delivered for a paid
// appraisal completes it.
func (h *ReportHandler) record(ctx context.Context, doc document, kind, format, emailedTo, emailID string) error {
	log := logging.FromContext(ctx)
	now := h.svc.now()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollback(tx, log, "record document")

	_, err = tx.ExecContext(ctx, `
		INSERT INTO report (id, appraisal_id, valuation_id, document, format, emailed_to, email_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), doc.appraisal.ID, doc.valuationID, kind, format, nullIfEmpty(emailedTo), nullIfEmpty(emailID), now)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE appraisal
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`, models.StatusCompleted, now, doc.appraisal.ID, models.StatusPaid)
	if err != nil {
		return fmt.Errorf("complete appraisal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		log.Info("appraisal completed", "appraisal_id", doc.appraisal.ID)
	}
	metrics.IncReportRendered(kind, format)
	return nil
}

func (h *ReportHandler) shareURL(appraisalID string, expires time.Time) string {
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(expires.Unix(), 10))
	q.Set("sig", auth.SignReportLink(appraisalID, expires, h.cfg.SessionSecret))
	return h.cfg.PublicBaseURL + "/shared/" + url.PathEscape(appraisalID) + "?" + q.Encode()
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func pdfFilename(prefix, appraisalID string) string {
	return prefix + "-" + appraisalID + ".pdf"
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func vehicleName(d report.Data) string {
	v := d.Vehicle
	return strings.TrimSpace(fmt.Sprintf("%d %s %s %s", v.Year, v.Make, v.Model, v.Trim))
}

func emailSubject(d report.Data) string {
	return "Your diminished value appraisal for the " + vehicleName(d)
}

func emailText(d report.Data) string {
	return fmt.Sprintf("Your diminished value appraisal for the %s is attached. Appraised diminished value: %s.",
		vehicleName(d), report.Money(d.Valuation.Estimate.Amount))
}

func emailBody(d report.Data) string {
	return "<p>" + html.EscapeString(emailText(d)) + "</p>"
}
