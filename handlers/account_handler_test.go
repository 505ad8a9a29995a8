package handlers

import (
	"context"
	"testing"

	"github.com/valyala/fasthttp"
)

func setupAccountEnv(t *testing.T) (*testEnv, *AccountHandler) {
	t.Helper()
	env := setupEnv(t)
	return env, NewAccountHandler(env.users, env.sessions, env.renderer)
}

func TestAccountHandler_FederatedAccountRedirectedHome(t *testing.T) {
	env, handler := setupAccountEnv(t)

	user, err := env.users.RegisterFederated(context.Background(), "bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("RegisterFederated() error = %v", err)
	}

	rctx := asUser(newTestContext("GET", "/account"), user.ID, user.Email)
	if err := handler.AccountPage(rctx); err != nil {
		t.Fatalf("AccountPage() error = %v", err)
	}
	if got := responseLocation(rctx); got != "/" {
		t.Errorf("AccountPage() federated Location = %q, want /", got)
	}
}

func TestAccountHandler_UpdateAccountSkipsEmptyFields(t *testing.T) {
	env, handler := setupAccountEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, "alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rctx := asUser(newFormContext("/account", "name=Alice+B&email="), user.ID, user.Email)
	if err := handler.UpdateAccount(rctx); err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}

	got, err := env.users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Alice B" {
		t.Errorf("UpdateAccount() Name = %v, want Alice B", got.Name)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("UpdateAccount() empty email should be skipped, Email = %v", got.Email)
	}
}

func TestAccountHandler_UpdateAccountEmailTaken(t *testing.T) {
	env, handler := setupAccountEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, "alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := env.users.Register(ctx, "bob@example.com", "Bob", "hunter22"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rctx := asUser(newFormContext("/account", "name=&email=bob%40example.com"), user.ID, user.Email)
	if err := handler.UpdateAccount(rctx); err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if got := responseLocation(rctx); got != "/account" {
		t.Errorf("UpdateAccount() Location = %q, want /account", got)
	}
	if got := flashMessage(t, rctx); got != flashEmailTaken {
		t.Errorf("UpdateAccount() flash = %q, want %q", got, flashEmailTaken)
	}

	got, err := env.users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("UpdateAccount() Email = %v, want alice@example.com", got.Email)
	}
}

func TestAccountHandler_ChangePasswordEmptyIsNoOp(t *testing.T) {
	env, handler := setupAccountEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, "alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rctx := asUser(newFormContext("/change_password", "password="), user.ID, user.Email)
	if err := handler.ChangePassword(rctx); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if got := responseLocation(rctx); got != "/change_password" {
		t.Errorf("ChangePassword() Location = %q, want /change_password", got)
	}

	if _, err := env.users.Authenticate(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Errorf("Authenticate() after empty change error = %v", err)
	}
}

func TestAccountHandler_AccountPageRendersProfile(t *testing.T) {
	env, handler := setupAccountEnv(t)

	user, err := env.users.Register(context.Background(), "alice@example.com", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rctx := asUser(newTestContext("GET", "/account"), user.ID, user.Email)
	if err := handler.AccountPage(rctx); err != nil {
		t.Fatalf("AccountPage() error = %v", err)
	}
	if responseStatus(rctx) != fasthttp.StatusOK {
		t.Errorf("AccountPage() status = %d, want %d", responseStatus(rctx), fasthttp.StatusOK)
	}
}
