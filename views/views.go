// Package views renders the server-side HTML pages and the outbound email
// bodies from templates embedded in the binary.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html templates/emails/*.html
var files embed.FS

// Page names accepted by Render.
const (
	PageNew            = "new"
	PageList           = "list"
	PageSaved          = "saved"
	PageLogin          = "login"
	PageRegister       = "register"
	PageForgotPassword = "forgot_password"
	PageResetPassword  = "reset_password"
	PageAccount        = "account"
	PagePassword       = "password"
	PageVerified       = "verified"
)

// Email template names accepted by RenderEmail.
const (
	EmailVerification = "verification"
	EmailReset        = "reset"
)

var pageNames = []string{
	PageNew, PageList, PageSaved, PageLogin, PageRegister,
	PageForgotPassword, PageResetPassword, PageAccount, PagePassword,
	PageVerified,
}

var emailNames = []string{EmailVerification, EmailReset}

// Page carries the state every template sees, plus page-specific Data.
type Page struct {
	Title string
	Dark  bool
	Flash string

	// Path is the current path+query, embedded in the theme-toggle link
	Path string

	// LoggedIn and the user fields describe the principal, when any
	LoggedIn  bool
	UserEmail string
	UserName  string

	Data interface{}
}

// Renderer holds the parsed template set
type Renderer struct {
	pages  map[string]*template.Template
	emails map[string]*template.Template
}

// New parses the embedded templates. Fail-fast: a malformed template is a
// packaging error and surfaces at startup, not per request.
func New() (*Renderer, error) {
	r := &Renderer{
		pages:  make(map[string]*template.Template, len(pageNames)),
		emails: make(map[string]*template.Template, len(emailNames)),
	}

	for _, name := range pageNames {
		tmpl, err := template.ParseFS(files, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	for _, name := range emailNames {
		tmpl, err := template.ParseFS(files, "templates/emails/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse email %s: %w", name, err)
		}
		r.emails[name] = tmpl
	}

	return r, nil
}

// Render produces the full HTML document for the named page
func (r *Renderer) Render(name string, page Page) ([]byte, error) {
	tmpl, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", page); err != nil {
		return nil, fmt.Errorf("failed to render page %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderEmail produces the HTML body for the named email template
func (r *Renderer) RenderEmail(name string, data interface{}) ([]byte, error) {
	tmpl, ok := r.emails[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return nil, fmt.Errorf("failed to render email %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
