package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"herdcore/pkg/domain"
)

// TenantHeader carries the owning account of every herd request.
const TenantHeader = "X-Tenant-ID"

type tenantKey struct{}

func requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenant == "" {
			respondError(w, errorResponse{Error: "missing " + TenantHeader + " header", Code: "missing_tenant"}, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, tenant)))
	})
}

func tenantFrom(r *http.Request) string {
	tenant, _ := r.Context().Value(tenantKey{}).(string)
	return tenant
}

// envelope wraps mutation results with any non-blocking rule violations.
type envelope struct {
	Data       any                `json:"data"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

type errorResponse struct {
	Error      string             `json:"error"`
	Code       string             `json:"code"`
	Field      string             `json:"field,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data any, res domain.Result) {
	respondJSON(w, status, envelope{Data: data, Violations: res.Violations})
}

func respondError(w http.ResponseWriter, body errorResponse, status int) {
	respondJSON(w, status, body)
}

// respondServiceError translates domain errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		notFound   domain.NotFoundError
		validation domain.ValidationError
		state      domain.StateError
		conflict   domain.ConflictError
		blocked    domain.RuleViolationError
	)
	switch {
	case errors.As(err, &notFound):
		respondError(w, errorResponse{Error: err.Error(), Code: "not_found"}, http.StatusNotFound)
	case errors.As(err, &validation):
		respondError(w, errorResponse{Error: err.Error(), Code: "validation", Field: validation.Field}, http.StatusBadRequest)
	case errors.As(err, &state):
		respondError(w, errorResponse{Error: err.Error(), Code: "invalid_state"}, http.StatusUnprocessableEntity)
	case errors.As(err, &conflict):
		respondError(w, errorResponse{Error: err.Error(), Code: "conflict"}, http.StatusConflict)
	case errors.As(err, &blocked):
		respondError(w, errorResponse{Error: err.Error(), Code: "rule_violation", Violations: blocked.Result.Violations}, http.StatusUnprocessableEntity)
	default:
		respondError(w, errorResponse{Error: "internal error", Code: "internal"}, http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err), Code: "bad_request"}, http.StatusBadRequest)
		return false
	}
	return true
}

// Date accepts either a calendar date (2006-01-02) or an RFC 3339 timestamp.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
