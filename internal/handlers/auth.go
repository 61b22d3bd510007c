package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adirathodd/titan-trading/internal/api"
	apperrors "github.com/adirathodd/titan-trading/internal/errors"
	"github.com/adirathodd/titan-trading/internal/session"
	"github.com/adirathodd/titan-trading/internal/storage"
)

// AuthHandler handles registration, login, email verification and logout.
type AuthHandler struct {
	templates TemplateCache
	client    *api.Client
	store     *session.Store
	journal   *storage.TradeJournal
	log       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	templates TemplateCache,
	client *api.Client,
	store *session.Store,
	journal *storage.TradeJournal,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		templates: templates,
		client:    client,
		store:     store,
		journal:   journal,
		log:       log,
	}
}

// LoginPage renders the login page.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(h.log, h.templates, w, "login.html", map[string]any{
		"Title": "Login",
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.renderLoginError(w, "Username and password are required")
		return
	}

	resp, err := h.client.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			h.renderLoginError(w, apperrors.Message(err, "Invalid username or password"))
			return
		}
		h.log.Error("login request", "error", err)
		h.renderLoginError(w, "Login failed. Please try again.")
		return
	}

	if err := h.store.Login(resp.Access, resp.Refresh, resp.Username, resp.Cash); err != nil {
		h.log.Error("store credentials", "error", err)
		h.renderLoginError(w, "Login failed. Please try again.")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegisterPage renders the registration page.
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	render(h.log, h.templates, w, "register.html", map[string]any{
		"Title": "Register",
	})
}

// Register handles the registration form submission.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegisterError(w, "Invalid form data", nil)
		return
	}

	req := &api.RegisterRequest{
		Username:  strings.TrimSpace(r.FormValue("username")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		Password:  r.FormValue("password"),
		Password2: r.FormValue("password2"),
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		h.renderRegisterError(w, "All fields are required", nil)
		return
	}
	if req.Password != req.Password2 {
		h.renderRegisterError(w, "Passwords do not match", nil)
		return
	}

	resp, err := h.client.Register(r.Context(), req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && apperrors.IsValidation(err) {
			h.renderRegisterError(w, appErr.Message, fieldErrors(appErr.Details))
			return
		}
		h.log.Error("register request", "error", err)
		h.renderRegisterError(w, "Registration failed. Please try again.", nil)
		return
	}

	render(h.log, h.templates, w, "register.html", map[string]any{
		"Title":   "Register",
		"Success": resp.Message,
	})
}

// Verify handles the email verification link from the registration mail.
// Verification does not log the user in; the backend response carries no
// username or cash, so the session cannot be populated from it.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	uidb64 := chi.URLParam(r, "uidb64")
	token := chi.URLParam(r, "token")

	resp, err := h.client.VerifyEmail(r.Context(), uidb64, token)
	if err != nil {
		render(h.log, h.templates, w, "verify.html", map[string]any{
			"Title": "Email Verification",
			"Error": apperrors.Message(err, "Verification failed. The link may have expired."),
		})
		return
	}

	render(h.log, h.templates, w, "verify.html", map[string]any{
		"Title":   "Email Verification",
		"Message": resp.Message,
	})
}

// Logout clears the session and the local trade journal.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout()
	if err := h.journal.Clear(); err != nil {
		h.log.Error("clear trade journal", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// renderLoginError renders the login page with an error message.
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, errMsg string) {
	render(h.log, h.templates, w, "login.html", map[string]any{
		"Title": "Login",
		"Error": errMsg,
	})
}

// renderRegisterError renders the register page with an error message.
func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, errMsg string, fields map[string]string) {
	render(h.log, h.templates, w, "register.html", map[string]any{
		"Title":  "Register",
		"Error":  errMsg,
		"Fields": fields,
	})
}

// fieldErrors flattens the per-field validation details from the backend
// into one message per field.
func fieldErrors(details map[string]any) map[string]string {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]string, len(details))
	for field, v := range details {
		switch msgs := v.(type) {
		case []string:
			if len(msgs) > 0 {
				out[field] = msgs[0]
			}
		case string:
			out[field] = msgs
		}
	}
	return out
}
