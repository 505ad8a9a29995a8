package services

import (
	"errors"
	"testing"

	"github.com/daylistio/daylist/models"
)

func TestTokens_VerificationRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret")

	token, err := tokens.IssueVerification("alice@example.com")
	if err != nil {
		t.Fatalf("IssueVerification() error = %v", err)
	}

	email, err := tokens.ParseEmail(token, PurposeVerify)
	if err != nil {
		t.Fatalf("ParseEmail() error = %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("ParseEmail() = %v, want alice@example.com", email)
	}
}

func TestTokens_PurposeMismatchFailsClosed(t *testing.T) {
	tokens := NewTokens("test-secret")

	verification, err := tokens.IssueVerification("alice@example.com")
	if err != nil {
		t.Fatalf("IssueVerification() error = %v", err)
	}
	reset, err := tokens.IssueReset("alice@example.com")
	if err != nil {
		t.Fatalf("IssueReset() error = %v", err)
	}

	// A verification link must never reset a password and vice versa
	if _, err := tokens.ParseEmail(verification, PurposeReset); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("ParseEmail(verification token, reset purpose) error = %v, want ErrInvalidToken", err)
	}
	if _, err := tokens.ParseEmail(reset, PurposeVerify); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("ParseEmail(reset token, verify purpose) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens_TamperedTokenRejected(t *testing.T) {
	tokens := NewTokens("test-secret")

	token, err := tokens.IssueVerification("alice@example.com")
	if err != nil {
		t.Fatalf("IssueVerification() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := tokens.ParseEmail(tampered, PurposeVerify); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("ParseEmail() tampered token error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens_WrongSecretRejected(t *testing.T) {
	issuer := NewTokens("secret-one")
	verifier := NewTokens("secret-two")

	token, err := issuer.IssueVerification("alice@example.com")
	if err != nil {
		t.Fatalf("IssueVerification() error = %v", err)
	}
	if _, err := verifier.ParseEmail(token, PurposeVerify); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("ParseEmail() cross-secret error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens_StateRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret")

	tests := []struct {
		name   string
		nonce  string
		listID string
	}{
		{name: "with pending list", nonce: "nonce-1", listID: "42"},
		{name: "without pending list", nonce: "nonce-2", listID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := tokens.IssueState(tt.nonce, tt.listID)
			if err != nil {
				t.Fatalf("IssueState() error = %v", err)
			}

			nonce, listID, err := tokens.ParseState(state)
			if err != nil {
				t.Fatalf("ParseState() error = %v", err)
			}
			if nonce != tt.nonce {
				t.Errorf("ParseState() nonce = %v, want %v", nonce, tt.nonce)
			}
			if listID != tt.listID {
				t.Errorf("ParseState() listID = %v, want %v", listID, tt.listID)
			}
		})
	}
}

func TestTokens_StateRejectedAsEmailToken(t *testing.T) {
	tokens := NewTokens("test-secret")

	state, err := tokens.IssueState("nonce", "42")
	if err != nil {
		t.Fatalf("IssueState() error = %v", err)
	}
	if _, err := tokens.ParseEmail(state, PurposeVerify); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("ParseEmail(state token) error = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokens_EmptySecretPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewTokens(\"\") should panic")
		}
	}()
	NewTokens("")
}
