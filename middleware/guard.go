package middleware

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	loginPath      = "/auth/login"
	callbackPath   = "/auth/callback"
	onboardingPath = "/onboarding"

	// Session cookies persist across installed-app restarts, so they
	// get a year rather than a browser-session lifetime.
	sessionCookieMaxAge = 365 * 24 * 60 * 60

	guardCheckTimeout = 3 * time.Second
)

// ProfileChecker reports whether a user finished onboarding.
// Implemented by services.UserService.
type ProfileChecker interface {
	IsProfileComplete(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PageGuardMiddleware enforces the login/onboarding invariants on page
// routes before anything renders:
//
//	no session, public path         -> pass
//	no session, protected path      -> login, preserving the intended path
//	session, callback or onboarding -> pass
//	session, incomplete profile     -> onboarding
//	session, complete profile       -> pass
//
// Static assets and API routes are skipped; those enforce auth
// themselves.
func PageGuardMiddleware(verifier TokenVerifier, profiles ProfileChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if skipGuard(path) {
				next.ServeHTTP(w, r)
				return
			}

			userID, authed := sessionFromCookie(r, verifier)

			if !authed {
				if isPublicPath(path) {
					next.ServeHTTP(w, r)
					return
				}
				redirect := loginPath + "?redirectTo=" + url.QueryEscape(path)
				http.Redirect(w, r, redirect, http.StatusFound)
				return
			}

			if strings.HasPrefix(path, callbackPath) || strings.HasPrefix(path, onboardingPath) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), guardCheckTimeout)
			defer cancel()

			complete, err := profiles.IsProfileComplete(ctx, userID)
			if err != nil {
				// Unknown profile state never exposes protected content.
				log.Printf("PageGuard: profile check failed for %s: %v", userID, err)
				http.Redirect(w, r, onboardingPath, http.StatusFound)
				return
			}
			if !complete {
				http.Redirect(w, r, onboardingPath, http.StatusFound)
				return
			}

			ctx = context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromCookie(r *http.Request, verifier TokenVerifier) (uuid.UUID, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, false
	}
	userID, err := verifier.Verify(cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func isPublicPath(path string) bool {
	if path == "/" {
		return true
	}
	return strings.HasPrefix(path, loginPath) || strings.HasPrefix(path, callbackPath)
}

func skipGuard(path string) bool {
	for _, prefix := range []string{"/api/", "/assets/", "/webhooks/", "/debug/", "/metrics", "/health"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// SetSessionCookie writes the access token with attributes that survive
// installed-PWA contexts: Lax so top-level navigation carries it, Secure,
// site-wide path and a long max-age.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie with the same attribute
// set and max-age zero.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // serializes as Max-Age=0
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})
}
