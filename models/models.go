package models

// User is a registered account, local or federated.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Federated    bool   `json:"federated"`
	Verified     bool   `json:"verified"`
}

// TodoList is a named collection of tasks. UserID is nil while the list
// is anonymous and set once the list has been claimed.
type TodoList struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID *int64 `json:"user_id,omitempty"`
}

// Task is a single to-do item. UserID mirrors the parent list's owner and
// is kept in sync transactionally by the list service.
type Task struct {
	ID        int64  `json:"id"`
	ListID    int64  `json:"list_id"`
	UserID    *int64 `json:"user_id,omitempty"`
	Body      string `json:"body"`
	Starred   bool   `json:"starred"`
	Completed bool   `json:"completed"`
}

// OwnedBy reports whether the list belongs to the given user id.
func (l *TodoList) OwnedBy(userID int64) bool {
	return l.UserID != nil && *l.UserID == userID
}

// Anonymous reports whether the list has no owner yet.
func (l *TodoList) Anonymous() bool {
	return l.UserID == nil
}
