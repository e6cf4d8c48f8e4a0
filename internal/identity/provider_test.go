package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignInWithPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts:signInWithPassword" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "web-key" {
			t.Fatalf("expected api key query param, got %q", r.URL.RawQuery)
		}
		var body struct {
			Email             string `json:"email"`
			Password          string `json:"password"`
			ReturnSecureToken bool   `json:"returnSecureToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed decoding body: %v", err)
		}
		if body.Email != "ana@example.com" || !body.ReturnSecureToken {
			t.Fatalf("unexpected body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"localId": "uid-1",
			"email": "ana@example.com",
			"displayName": "Ana",
			"idToken": "token-1",
			"refreshToken": "refresh-1"
		}`))
	}))
	defer server.Close()

	provider, err := NewRESTProvider(server.URL, "web-key")
	if err != nil {
		t.Fatalf("NewRESTProvider returned error: %v", err)
	}

	account, err := provider.SignInWithPassword(context.Background(), "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignInWithPassword returned error: %v", err)
	}
	if account.User.UID != "uid-1" || account.User.DisplayName != "Ana" {
		t.Errorf("unexpected account: %+v", account)
	}
	if account.IDToken != "token-1" {
		t.Errorf("unexpected id token: %q", account.IDToken)
	}
}

func TestSignInWithPasswordInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "INVALID_LOGIN_CREDENTIALS"}}`))
	}))
	defer server.Close()

	provider, err := NewRESTProvider(server.URL, "web-key")
	if err != nil {
		t.Fatalf("NewRESTProvider returned error: %v", err)
	}

	if _, err := provider.SignInWithPassword(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignUpEmailExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "EMAIL_EXISTS"}}`))
	}))
	defer server.Close()

	provider, err := NewRESTProvider(server.URL, "web-key")
	if err != nil {
		t.Fatalf("NewRESTProvider returned error: %v", err)
	}

	if _, err := provider.SignUp(context.Background(), "ana@example.com", "secret123"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestSignUpWeakPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "WEAK_PASSWORD : Password should be at least 6 characters"}}`))
	}))
	defer server.Close()

	provider, err := NewRESTProvider(server.URL, "web-key")
	if err != nil {
		t.Fatalf("NewRESTProvider returned error: %v", err)
	}

	if _, err := provider.SignUp(context.Background(), "ana@example.com", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignInWithGoogleSendsIdpPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts:signInWithIdp" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			PostBody   string `json:"postBody"`
			RequestURI string `json:"requestUri"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed decoding body: %v", err)
		}
		if body.PostBody != "id_token=google-token&providerId=google.com" {
			t.Fatalf("unexpected postBody: %q", body.PostBody)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"localId": "uid-2", "email": "g@example.com", "photoUrl": "https://p", "idToken": "token-2"}`))
	}))
	defer server.Close()

	provider, err := NewRESTProvider(server.URL, "web-key")
	if err != nil {
		t.Fatalf("NewRESTProvider returned error: %v", err)
	}

	account, err := provider.SignInWithGoogle(context.Background(), "google-token")
	if err != nil {
		t.Fatalf("SignInWithGoogle returned error: %v", err)
	}
	if account.User.UID != "uid-2" || account.User.PhotoURL != "https://p" {
		t.Errorf("unexpected account: %+v", account)
	}
}

func TestProviderRejectsBlankInput(t *testing.T) {
	provider, err := NewRESTProvider("http://auth.invalid", "web-key")
	if err != nil {
		t.Fatalf("NewRESTProvider returned error: %v", err)
	}

	if _, err := provider.SignInWithPassword(context.Background(), "", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank email, got %v", err)
	}
	if _, err := provider.SignInWithGoogle(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank token, got %v", err)
	}
	if _, err := provider.UpdateDisplayName(context.Background(), "token", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank name, got %v", err)
	}
}
