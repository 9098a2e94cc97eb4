package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const (
	testSessionSigningSecret = "secret"
	testSessionIssuer        = "campushub-auth"
	testSessionAudience      = "campushub-api"
	testSessionUserID        = "user-123"
)

func mustSessionValidator(t *testing.T, clock func() time.Time) *SessionValidator {
	t.Helper()
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		Issuer:        testSessionIssuer,
		Audience:      testSessionAudience,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}
	return validator
}

func mustSessionToken(t *testing.T, clock func() time.Time, session Session) string {
	t.Helper()
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		Issuer:        testSessionIssuer,
		Audience:      testSessionAudience,
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
	signed, _, err := issuer.IssueSessionToken(context.Background(), session)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return signed
}

func TestSessionValidatorValidateToken(t *testing.T) {
	clockNow := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return clockNow }
	validator := mustSessionValidator(t, clock)

	signed := mustSessionToken(t, clock, Session{
		UserID:      testSessionUserID,
		DisplayName: "Ada Lovelace",
		Initials:    "AL",
	})

	session, err := validator.ValidateToken(signed)
	if err != nil {
		t.Fatalf("unexpected validation failure: %v", err)
	}
	if session.UserID != testSessionUserID {
		t.Fatalf("unexpected user id: %s", session.UserID)
	}
	if session.DisplayName != "Ada Lovelace" || session.Initials != "AL" {
		t.Fatalf("unexpected profile fields: %#v", session)
	}
}

func TestSessionValidatorRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	signed := mustSessionToken(t, func() time.Time { return issuedAt }, Session{UserID: testSessionUserID})

	validator := mustSessionValidator(t, func() time.Time { return issuedAt.Add(2 * time.Hour) })
	if _, err := validator.ValidateToken(signed); !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestSessionValidatorRejectsWrongIssuer(t *testing.T) {
	clockNow := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return clockNow }

	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		Issuer:        "someone-else",
		Audience:      testSessionAudience,
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
	signed, _, err := issuer.IssueSessionToken(context.Background(), Session{UserID: testSessionUserID})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	validator := mustSessionValidator(t, clock)
	if _, err := validator.ValidateToken(signed); err == nil {
		t.Fatalf("expected validation failure for wrong issuer")
	}
}

func TestSessionValidatorValidateRequestUsesBearerHeader(t *testing.T) {
	clockNow := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return clockNow }
	validator := mustSessionValidator(t, clock)
	signed := mustSessionToken(t, clock, Session{UserID: testSessionUserID})

	request := httptest.NewRequest(http.MethodGet, "/chat/rooms", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+signed)

	session, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if session.UserID != testSessionUserID {
		t.Fatalf("unexpected user id: %s", session.UserID)
	}
}

func TestSessionValidatorValidateRequestFallsBackToQueryParam(t *testing.T) {
	clockNow := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return clockNow }
	validator := mustSessionValidator(t, clock)
	signed := mustSessionToken(t, clock, Session{UserID: testSessionUserID})

	request := httptest.NewRequest(http.MethodGet, "/live/stream?access_token="+signed, http.NoBody)

	session, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if session.UserID != testSessionUserID {
		t.Fatalf("unexpected user id: %s", session.UserID)
	}
}

func TestSessionValidatorValidateRequestMissingToken(t *testing.T) {
	validator := mustSessionValidator(t, nil)
	request := httptest.NewRequest(http.MethodGet, "/chat/rooms", http.NoBody)
	if _, err := validator.ValidateRequest(request); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}
