package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/internal/origin"
	"github.com/MrEthical07/goReset/middleware"
	"github.com/rs/zerolog"
)

// FormCookie carries the form ID between GET and POST /forgot-password.
const FormCookie = "goreset_form"

const (
	PathForm = "/forgot-password"
	PathAPI  = "/api/password-reset"
)

const defaultMaxBodyBytes = 16 << 10

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/forgot_password.html"))

// Options tunes the handler. Zero values select defaults.
type Options struct {
	Logger *zerolog.Logger
	// MaxBodyBytes caps request bodies. Default 16 KiB.
	MaxBodyBytes int64
	// SecureCookie sets the Secure attribute on the form cookie.
	SecureCookie bool
}

// Handler serves the reset-request form and its JSON API.
type Handler struct {
	engine         *goReset.Engine
	trustForwarded bool
	cookieTTL      time.Duration
	maxBody        int64
	secureCookie   bool
	logger         zerolog.Logger
	root           http.Handler
}

// New builds a Handler for engine. The returned handler already wraps its
// routes with middleware.ClientInfo.
func New(engine *goReset.Engine, opts Options) (*Handler, error) {
	if engine == nil {
		return nil, goReset.ErrEngineNotReady
	}

	cfg := engine.Config()
	h := &Handler{
		engine:         engine,
		trustForwarded: cfg.App.TrustForwardedHeaders,
		cookieTTL:      cfg.Forms.TTL,
		maxBody:        opts.MaxBodyBytes,
		secureCookie:   opts.SecureCookie,
		logger:         zerolog.Nop(),
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}
	if opts.Logger != nil {
		h.logger = opts.Logger.With().Str("component", "web").Logger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathForm, h.showForm)
	mux.HandleFunc("POST "+PathForm, h.submitForm)
	mux.HandleFunc("POST "+PathAPI, h.apiSubmit)
	h.root = middleware.ClientInfo(h.trustForwarded)(mux)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) ambientOrigin(r *http.Request) string {
	return origin.FromRequest(r, h.trustForwarded)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(FormCookie); err == nil && c.Value != "" {
		h.engine.CloseForm(c.Value)
	}

	form, err := h.engine.NewForm()
	if err != nil {
		h.logger.Error().Err(err).Msg("create form")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.setFormCookie(w, form.ID())
	h.render(w, http.StatusOK, form.Snapshot())
}

func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form, err := h.cookieForm(w, r)
	if err != nil {
		h.logger.Error().Err(err).Msg("create form")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	snap, err := form.Submit(r.Context(), goReset.FormInput{Email: r.PostFormValue("email")}, h.ambientOrigin(r))
	status := http.StatusOK
	switch {
	case errors.Is(err, goReset.ErrEmailRequired), errors.Is(err, goReset.ErrEmailInvalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, goReset.ErrSubmitInFlight):
		status = http.StatusConflict
	case errors.Is(err, goReset.ErrFormClosed):
		status = http.StatusGone
	}

	h.render(w, status, snap)
}

// cookieForm returns the form named by the cookie (or the form_id field),
// replacing it with a new instance when it is missing or expired.
func (h *Handler) cookieForm(w http.ResponseWriter, r *http.Request) (*goReset.Form, error) {
	id := r.PostFormValue("form_id")
	if c, err := r.Cookie(FormCookie); err == nil && c.Value != "" {
		id = c.Value
	}
	if id != "" {
		if form, err := h.engine.Form(id); err == nil {
			return form, nil
		}
	}

	form, err := h.engine.NewForm()
	if err != nil {
		return nil, err
	}
	h.setFormCookie(w, form.ID())
	return form, nil
}

func (h *Handler) setFormCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FormCookie,
		Value:    id,
		Path:     PathForm,
		MaxAge:   int(h.cookieTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type pageData struct {
	Lang          string
	Action        string
	Logo          string
	Title         string
	EmailLabel    string
	Placeholder   string
	SendButton    string
	SendingButton string
	ReturnToLogin string
	BackToLogin   string
	LoginURL      string
	EmailError    string
	Success       bool
	Snapshot      goReset.Snapshot
}

func (h *Handler) render(w http.ResponseWriter, status int, snap goReset.Snapshot) {
	t := h.engine.Translate
	data := pageData{
		Lang:          h.engine.Config().I18n.Locale,
		Action:        PathForm,
		Logo:          t(goReset.KeyLogo),
		Title:         t(goReset.KeyTitle),
		EmailLabel:    t(goReset.KeyEmailLabel),
		Placeholder:   t(goReset.KeyEmailPlaceholder),
		SendButton:    t(goReset.KeySendButton),
		SendingButton: t(goReset.KeySendingButton),
		ReturnToLogin: t(goReset.KeyReturnToLogin),
		BackToLogin:   t(goReset.KeyBackToLogin),
		LoginURL:      h.engine.LoginURL(),
		EmailError:    snap.FieldErrors[goReset.FieldEmail],
		Success:       snap.State == goReset.StateSuccess,
		Snapshot:      snap,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error().Err(err).Msg("render form")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
