package downloader

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionCookie is the cookie the WebUI issues on a successful login.
const SessionCookie = "SID"

// Session is the credential of one invocation. It is never persisted.
type Session struct {
	CookieName  string
	CookieValue string
	// Status of the login response, 0 when no login was sent.
	Status int
	// Placeholder is set for the made-up session of a dry run.
	Placeholder bool
}

// Anonymous reports whether the session carries no credential, which is the
// case when the WebUI lets the client in without logging in.
func (s Session) Anonymous() bool {
	return s.CookieValue == ""
}

// CookieHeader renders the session as a Cookie header value.
func (s Session) CookieHeader() string {
	if s.Anonymous() {
		return ""
	}
	return (&http.Cookie{Name: s.CookieName, Value: s.CookieValue}).String()
}

func placeholderSession() Session {
	return Session{
		CookieName:  SessionCookie,
		CookieValue: "dry-run-" + uuid.NewString(),
		Placeholder: true,
	}
}

// Response is what the client keeps of an HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Body       string
	Cookies    []*http.Cookie
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Cookie returns the cookie called name, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

// SubmissionResult describes the outcome of an add-torrent call.
type SubmissionResult struct {
	StatusCode int
	Body       string
	DryRun     bool
}
