package auth

import (
	"errors"
	"html/template"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/common"
)

// Handler serves the login form, session endpoints and the landing page.
type Handler struct {
	Service        *Service
	Catalog        *catalog.Service
	CookieName     string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

type loginRequest struct {
	Password string `json:"password"`
}

var formPage = template.Must(template.New("auth").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Access</title></head>
<body>
<form method="post" action="/auth">
<h1>Access verification</h1>
<input type="password" name="password" placeholder="Enter the access password" autofocus>
{{if .}}<p class="error">{{.}}</p>{{end}}
<button type="submit">Confirm</button>
</form>
</body>
</html>
`))

var landingPage = template.Must(template.New("landing").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Receipt Generator</title></head>
<body>
<h1>Receipt Generator</h1>
<ul>
{{range .}}<li data-template="{{.ID}}"><strong>{{.Name}}</strong> {{.Description}}</li>
{{end}}</ul>
<form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
</body>
</html>
`))

// Form handles GET /auth.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, formPage, "")
}

// Login handles POST /auth with either a form or a JSON body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	wantsJSON := isJSON(r)
	password, err := readPassword(r, wantsJSON)
	if err != nil {
		if wantsJSON {
			common.WriteError(w, err)
			return
		}
		renderHTML(w, http.StatusBadRequest, formPage, "Invalid request")
		return
	}
	session, err := h.Service.Login(r.Context(), password, common.ClientIP(r))
	if err != nil {
		if wantsJSON {
			common.WriteError(w, err)
			return
		}
		status := http.StatusInternalServerError
		message := "Something went wrong"
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
		}
		switch status {
		case http.StatusUnauthorized:
			message = "Incorrect password"
		case http.StatusTooManyRequests:
			message = "Too many attempts, try again later"
		}
		renderHTML(w, status, formPage, message)
		return
	}
	h.setCookie(w, session.Token, session.ExpiresAt, int(time.Until(session.ExpiresAt).Seconds()))
	if wantsJSON {
		common.JSON(w, http.StatusOK, map[string]any{"data": session})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, "", time.Unix(0, 0), -1)
	if isJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

// Landing handles GET /.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	var templates []catalog.Template
	if h.Catalog != nil {
		templates = h.Catalog.Templates()
	}
	renderHTML(w, http.StatusOK, landingPage, templates)
}

func (h *Handler) setCookie(w http.ResponseWriter, value string, expires time.Time, maxAge int) {
	name := h.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	sameSite := h.CookieSameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: sameSite,
	})
}

func readPassword(r *http.Request, wantsJSON bool) (string, error) {
	if wantsJSON {
		var req loginRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			return "", err
		}
		return req.Password, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("password"), nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "application/json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func renderHTML(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = tmpl.Execute(w, data)
}
