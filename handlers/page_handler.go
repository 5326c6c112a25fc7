package handlers

import (
	"fmt"
	"net/http"
)

// PageHandler serves the minimal server-rendered shells the mobile and
// web clients deep-link into. Everything behind it is guarded by the
// page middleware; the real UI lives in the clients.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

func (h *PageHandler) servePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s · Hapien</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, title, title, body)
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "Hapien", "Meet your people.")
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	redirectTo := r.URL.Query().Get("redirectTo")
	body := "Sign in with your phone number."
	if redirectTo != "" {
		body = fmt.Sprintf("Sign in to continue to %s.", redirectTo)
	}
	h.servePage(w, "Sign in", body)
}

func (h *PageHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "Welcome", "Tell us your name to finish setting up.")
}

func (h *PageHandler) Communities(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "Communities", "Your communities live here.")
}

func (h *PageHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "Feed", "Catch up with your friends.")
}
