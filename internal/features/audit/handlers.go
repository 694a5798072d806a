package audit

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/core"
)

type Handler struct {
	identities authz.IdentityResolver
	service    *Service
}

// NewHandler constructs a new handler.
func NewHandler(identities authz.IdentityResolver, service *Service) Handler {
	return Handler{identities: identities, service: service}
}

type entryResponse struct {
	ID          int           `json:"id"`
	UserID      int           `json:"user_id"`
	ActionType  string        `json:"action_type"`
	Details     string        `json:"details"`
	PerformedBy *int          `json:"performed_by"`
	CreatedAt   time.Time     `json:"created_at"`
	User        *userResponse `json:"user"`
	Performer   *userResponse `json:"performer"`
}

type userResponse struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: string(u.Role)}
}

func toEntryResponse(v domain.AuditLogView) entryResponse {
	out := entryResponse{
		ID:         v.ID,
		UserID:     v.UserID,
		ActionType: v.ActionType,
		Details:    v.Details,
		CreatedAt:  v.CreatedAt.UTC(),
		User:       toUserResponse(v.User),
		Performer:  toUserResponse(v.Performer),
	}
	if v.PerformedBy.Valid {
		id := int(v.PerformedBy.Int64)
		out.PerformedBy = &id
	}
	return out
}

// List returns filtered audit entries as JSON for admins.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	if _, err := authz.NewGate(h.service.repos.Users).RequireAdmin(r.Context(), identity); err != nil {
		core.WriteError(w, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	logs, err := h.service.List(r.Context(), filters)
	if errors.Is(err, ErrInvalidDateRange) {
		core.WriteError(w, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	if err != nil {
		core.WriteError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(logs))
	for _, v := range logs {
		out = append(out, toEntryResponse(v))
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	f := Filters{
		ActionType: strings.TrimSpace(q.Get("action_type")),
		DateRange:  DateRange(strings.TrimSpace(q.Get("date_range"))),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Filters{}, fmt.Errorf("%w: invalid limit", core.ErrBadRequest)
		}
		f.Limit = limit
	}
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		userID, err := strconv.Atoi(raw)
		if err != nil || userID <= 0 {
			return Filters{}, fmt.Errorf("%w: invalid user_id", core.ErrBadRequest)
		}
		f.UserID = userID
	}
	return f, nil
}

// Wipe erases the whole audit log.
func (h Handler) Wipe(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	n, err := h.service.WipeAll(r.Context(), identity)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Download exports the full audit log as CSV, JSON, or text.
func (h Handler) Download(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	logs, err := h.service.Export(r.Context(), identity)
	if err != nil {
		core.WriteError(w, err)
		return
	}

	filename := "audit-log." + format
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		out := make([]entryResponse, 0, len(logs))
		for _, v := range logs {
			out = append(out, toEntryResponse(v))
		}
		_ = json.NewEncoder(w).Encode(out)
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		for _, v := range logs {
			fmt.Fprintf(
				w,
				"%s | %s | about %s | by %s | %s | log #%d\n",
				v.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
				v.ActionType,
				userLabel(v.User, v.UserID),
				performerLabel(v),
				v.Details,
				v.ID,
			)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		writer := csv.NewWriter(w)
		_ = writer.Write([]string{"id", "timestamp", "action_type", "user", "performed_by", "details"})
		for _, v := range logs {
			_ = writer.Write([]string{
				strconv.Itoa(v.ID),
				v.CreatedAt.UTC().Format(time.RFC3339Nano),
				v.ActionType,
				userLabel(v.User, v.UserID),
				performerLabel(v),
				v.Details,
			})
		}
		writer.Flush()
	default:
		core.WriteError(w, fmt.Errorf("%w: unknown format %q", core.ErrBadRequest, format))
	}
}

// userLabel prefers the joined email and falls back to the raw id.
func userLabel(u *domain.User, id int) string {
	if u != nil && u.Email != "" {
		return u.Email
	}
	return fmt.Sprintf("#%d", id)
}

func performerLabel(v domain.AuditLogView) string {
	if !v.PerformedBy.Valid {
		return "system"
	}
	return userLabel(v.Performer, int(v.PerformedBy.Int64))
}
