package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-characters!!"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewVerifier_MissingSecret(t *testing.T) {
	if _, err := NewVerifier("", "authenticated"); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("err = %v, want ErrMissingSecret", err)
	}
}

func TestVerify(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	v, err := NewVerifier(testSecret, "authenticated", WithClock(fixedClock(now)))
	if err != nil {
		t.Fatal(err)
	}

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	noExpiry := valid()
	noExpiry.ExpiresAt = nil
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}
	noSubject := valid()
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"valid", sign(valid(), jwt.SigningMethodHS256, []byte(testSecret)), "user-1", false},
		{"expired", sign(expired, jwt.SigningMethodHS256, []byte(testSecret)), "", true},
		{"no expiry", sign(noExpiry, jwt.SigningMethodHS256, []byte(testSecret)), "", true},
		{"wrong audience", sign(wrongAudience, jwt.SigningMethodHS256, []byte(testSecret)), "", true},
		{"no subject", sign(noSubject, jwt.SigningMethodHS256, []byte(testSecret)), "", true},
		{"wrong secret", sign(valid(), jwt.SigningMethodHS256, []byte("another-secret")), "", true},
		{"wrong algorithm", sign(valid(), jwt.SigningMethodHS512, []byte(testSecret)), "", true},
		{"garbage", "not-a-jwt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthenticated) {
					t.Errorf("err = %v, want ErrUnauthenticated", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerify_NoAudienceConfigured(t *testing.T) {
	v, err := NewVerifier(testSecret, "")
	if err != nil {
		t.Fatal(err)
	}
	token, err := v.Sign("user-2", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := v.Verify(token); err != nil || got != "user-2" {
		t.Errorf("Verify() = %q, %v", got, err)
	}
}

func TestUserID(t *testing.T) {
	if _, err := UserID(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if _, err := UserID(WithUserID(context.Background(), "")); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("empty id: err = %v, want ErrUnauthenticated", err)
	}
	got, err := UserID(WithUserID(context.Background(), "u1"))
	if err != nil || got != "u1" {
		t.Errorf("UserID() = %q, %v", got, err)
	}
}

func TestMiddleware(t *testing.T) {
	v, err := NewVerifier(testSecret, "authenticated")
	if err != nil {
		t.Fatal(err)
	}
	token, err := v.Sign("user-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer " + token, http.StatusNoContent, "user-1"},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/taste", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if seen != tt.wantUser {
				t.Errorf("user = %q, want %q", seen, tt.wantUser)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}
