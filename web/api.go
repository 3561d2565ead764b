package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goReset "github.com/MrEthical07/goReset"
)

// Error is the error member of the JSON envelope.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Response is the JSON envelope returned by the API route.
type Response struct {
	OK    bool              `json:"ok"`
	Data  *goReset.Snapshot `json:"data,omitempty"`
	Error *Error            `json:"error,omitempty"`
}

type apiError struct {
	Status int
	Err    Error
}

type resetRequest struct {
	FormID string `json:"form_id"`
	Email  string `json:"email"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func readJSON(r *http.Request, dst any) *apiError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	badJSON := &apiError{
		Status: http.StatusBadRequest,
		Err:    Error{Code: "bad_json", Message: "bad json"},
	}

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &apiError{
				Status: http.StatusRequestEntityTooLarge,
				Err:    Error{Code: "payload_too_large", Message: "request body too large"},
			}
		}
		return badJSON
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return badJSON
	}

	return nil
}

func (h *Handler) apiSubmit(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeJSON(w, http.StatusUnsupportedMediaType, Response{Error: &Error{
			Code:    "unsupported_media_type",
			Message: "expected application/json",
		}})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	var req resetRequest
	if apiErr := readJSON(r, &req); apiErr != nil {
		writeJSON(w, apiErr.Status, Response{Error: &apiErr.Err})
		return
	}

	form, err := h.apiForm(req.FormID)
	if err != nil {
		status, apiErr := submitError(err, goReset.Snapshot{})
		writeJSON(w, status, Response{Error: &apiErr})
		return
	}

	snap, err := form.Submit(r.Context(), goReset.FormInput{Email: req.Email}, h.ambientOrigin(r))
	status, apiErr := submitError(err, snap)
	if status == http.StatusOK {
		writeJSON(w, status, Response{OK: true, Data: &snap})
		return
	}
	writeJSON(w, status, Response{Data: &snap, Error: &apiErr})
}

func (h *Handler) apiForm(id string) (*goReset.Form, error) {
	if id == "" {
		return h.engine.NewForm()
	}
	return h.engine.Form(id)
}

// submitError maps a Submit result onto an HTTP status and envelope error.
// A nil error with a successful snapshot yields http.StatusOK.
func submitError(err error, snap goReset.Snapshot) (int, Error) {
	switch {
	case errors.Is(err, goReset.ErrEmailRequired), errors.Is(err, goReset.ErrEmailInvalid):
		code := "email_required"
		if errors.Is(err, goReset.ErrEmailInvalid) {
			code = "email_invalid"
		}
		return http.StatusUnprocessableEntity, Error{
			Code:    code,
			Message: snap.FieldErrors[goReset.FieldEmail],
			Details: snap.FieldErrors,
		}
	case errors.Is(err, goReset.ErrFormNotFound):
		return http.StatusNotFound, Error{Code: "form_not_found", Message: "form not found or expired"}
	case errors.Is(err, goReset.ErrFormClosed):
		return http.StatusGone, Error{Code: "form_closed", Message: "form closed"}
	case errors.Is(err, goReset.ErrSubmitInFlight):
		return http.StatusConflict, Error{Code: "submit_in_flight", Message: "submission already in progress"}
	case errors.Is(err, goReset.ErrFlowComplete):
		return http.StatusConflict, Error{Code: "flow_complete", Message: "reset request already sent"}
	case err != nil:
		return http.StatusInternalServerError, Error{Code: "internal_error", Message: "internal error"}
	}

	if snap.State != goReset.StateFailed {
		return http.StatusOK, Error{}
	}

	switch snap.Failure {
	case "provider":
		return http.StatusBadGateway, Error{Code: "provider_error", Message: snap.FormError}
	case "config":
		return http.StatusServiceUnavailable, Error{Code: "app_url_not_configured", Message: snap.FormError}
	default:
		return http.StatusInternalServerError, Error{Code: "internal_error", Message: snap.FormError}
	}
}
