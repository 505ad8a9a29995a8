package views

import "github.com/daylistio/daylist/models"

// NewPageData feeds the anonymous landing page.
type NewPageData struct {
	DefaultName string
}

// ListPageData feeds the single-list page.
type ListPageData struct {
	List  models.TodoList
	Tasks []models.Task

	// CanSave is true when the viewer is anonymous and may claim the list
	CanSave bool

	GoogleEnabled bool
}

// SavedPageData feeds the saved-lists overview.
type SavedPageData struct {
	Lists []models.TodoList
}

// AuthPageData feeds the login and register pages. ListID carries the
// pending-claim list through the credential form when present.
type AuthPageData struct {
	ListID        string
	GoogleEnabled bool
}

// ResetPageData carries the signed token through the reset form.
type ResetPageData struct {
	Token string
}

// VerificationEmailData feeds the address-verification email body.
type VerificationEmailData struct {
	Name string
	Link string
}

// ResetEmailData feeds the password-reset email body.
type ResetEmailData struct {
	Name string
	Link string
}
