// Package testapp serves a small sign-in application used by acceptance
// tests of the engines, the page objects and the built-in scenarios.
package testapp

import (
	"embed"
	"html/template"
	"net/http"
	"net/http/httptest"
)

//go:embed pages/*.html
var pages embed.FS

// Credentials accepted by the sign-in form.
const (
	Email    = "qa@example.com"
	Password = "Secret123!"
	Company  = "ACME Corp"
)

var tmpl = template.Must(template.ParseFS(pages, "pages/*.html"))

// New starts the application. Routes: / and /login (sign in and new user
// form), /forgot-password, /signup (account information) and /contract
// (fixtures for BrowserAction behavior; ?appear=<ms> adds #late after a delay).
func New() *httptest.Server {
	mux := http.NewServeMux()
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			data := struct{ Email, Password string }{Email, Password}
			if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
	mux.HandleFunc("/{$}", page("login.html"))
	mux.HandleFunc("/login", page("login.html"))
	mux.HandleFunc("/forgot-password", page("forgot.html"))
	mux.HandleFunc("/signup", page("signup.html"))
	mux.HandleFunc("/contract", page("contract.html"))
	return httptest.NewServer(mux)
}
