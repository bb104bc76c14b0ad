// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/dv-appraisal/cliparse"
	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/negotiation"
	"github.com/danielhkuo/dv-appraisal/valuation"
)

// MaxChatMessageLength caps a user message in characters
const MaxChatMessageLength = 2000

// ChatHandler serves the negotiation assistant for one appraisal
type ChatHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewChatHandler(db *sql.DB, cfg cliparse.Config, svc Services) *ChatHandler {
	return &ChatHandler{db: db, cfg: cfg, svc: svc.withDefaults()}
}

// Send handles POST /appraisals/{id}/chat. The reply quotes the latest full
// valuation, or the preview estimate before one exists.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req models.ChatRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		middleware.FieldErrorResponse(w, "Invalid message", map[string][]string{"message": {"is required"}})
		return
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLength {
		middleware.FieldErrorResponse(w, "Invalid message", map[string][]string{
			"message": {fmt.Sprintf("must be at most %d characters", MaxChatMessageLength)},
		})
		return
	}

	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}
	if !a.Steps.Vehicle {
		middleware.ErrorResponse(w, http.StatusConflict, "Complete the vehicle step before using the assistant")
		return
	}

	conv, err := h.conversation(r.Context(), a)
	if err != nil {
		if validationResponse(w, err) {
			return
		}
		log.Error("failed to build conversation", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	reply := h.svc.Assistant.Reply(r.Context(), conv, message)

	userMsg, assistantMsg, err := h.store(r.Context(), a.ID, message, reply)
	if err != nil {
		log.Error("failed to store chat messages", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	log.Info("chat reply", "appraisal_id", a.ID, "intent", reply.Intent, "seq", userMsg.Seq)

	middleware.JSONResponse(w, http.StatusCreated, models.ChatResponse{
		Message: userMsg,
		Reply:   assistantMsg,
		Offer:   reply.Offer,
		Counter: reply.Counter,
		Accept:  reply.Accept,
	})
}

// History handles GET /appraisals/{id}/chat
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	a, _, ok := ownedAppraisal(w, r, h.db)
	if !ok {
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, seq, role, body, intent, created_at
		FROM chat_message
		WHERE appraisal_id = $1
		ORDER BY seq
	`, a.ID)
	if err != nil {
		log.Error("failed to query chat", "appraisal_id", a.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var intent sql.NullString
		if err := rows.Scan(&m.ID, &m.Seq, &m.Role, &m.Body, &intent, &m.CreatedAt); err != nil {
			log.Error("failed to scan chat message", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		m.Intent = intent.String
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		log.Error("failed to iterate chat", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, messages)
}

func (h *ChatHandler) conversation(ctx context.Context, a models.Appraisal) (negotiation.Conversation, error) {
	conv := negotiation.Conversation{
		AppraisalID: a.ID,
		Vehicle:     strings.TrimSpace(fmt.Sprintf("%d %s %s", a.Vehicle.Year, a.Vehicle.Make, a.Vehicle.Model)),
		RepairCost:  a.Vehicle.RepairCost,
		InsurerName: a.InsurerName,
		ClaimNumber: a.ClaimNumber,
	}

	_, fv, err := latestValuation(ctx, h.db, a.ID)
	switch {
	case err == nil:
		conv.Estimate = fv.Estimate
		conv.Comparables = len(fv.Comparables.Listings)
		return conv, nil
	case !errors.Is(err, errNoValuation):
		return conv, err
	}

	now := h.svc.now()
	if err := valuation.ValidateProfile(a.Vehicle, now); err != nil {
		return conv, err
	}
	conv.Estimate = valuation.ComputeDVAmount(a.Vehicle, h.svc.Rules, now)
	return conv, nil
}

// store appends the user message and the reply under the next two sequence numbers
func (h *ChatHandler) store(ctx context.Context, appraisalID, message string, reply negotiation.Reply) (models.ChatMessage, models.ChatMessage, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, err
	}
	defer logging.SafeRollback(tx, logging.FromContext(ctx), "store chat")

	// Row lock on the appraisal serialises concurrent sends so seq stays unique
	if _, err := tx.ExecContext(ctx, "UPDATE appraisal SET updated_at = updated_at WHERE id = $1", appraisalID); err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, fmt.Errorf("lock appraisal: %w", err)
	}

	var last int
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM chat_message WHERE appraisal_id = $1", appraisalID).Scan(&last)
	if err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, fmt.Errorf("next sequence: %w", err)
	}

	now := h.svc.now()
	userMsg := models.ChatMessage{ID: uuid.NewString(), Seq: last + 1, Role: models.RoleUser, Body: message, Intent: reply.Intent, CreatedAt: now}
	assistantMsg := models.ChatMessage{ID: uuid.NewString(), Seq: last + 2, Role: models.RoleAssistant, Body: reply.Text, Intent: reply.Intent, CreatedAt: now}

	for _, m := range []models.ChatMessage{userMsg, assistantMsg} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_message (id, appraisal_id, seq, role, body, intent, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, m.ID, appraisalID, m.Seq, m.Role, m.Body, m.Intent, m.CreatedAt)
		if err != nil {
			return models.ChatMessage{}, models.ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, err
	}
	return userMsg, assistantMsg, nil
}

