// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/google/uuid"

	"github.com/humaidq/labvault/db"
)

var testUserID = uuid.MustParse("7b0b7c1e-3f7e-4e43-9a43-8d9d0c4bd111")

func newAuthTestApp(s session.Session) *flamego.Flame {
	f := flamego.New()
	f.Use(func(c flamego.Context) {
		c.MapTo(s, (*session.Session)(nil))
		c.Next()
	})

	f.Post("/login", Login)
	f.Post("/register", Register)
	f.Get("/logout", Logout)
	f.Post("/api/auth/login", APILogin)
	f.Post("/api/auth/register", APIRegister)
	f.Get("/api/auth/check-connection", APICheckConnection)

	return f
}

func performFormPOST(t *testing.T, f *flamego.Flame, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	return rec
}

func performJSONPOST(t *testing.T, f *flamego.Flame, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}

	return rec, decoded
}

func stubAuthenticate(t *testing.T, fn func(context.Context, string, string) (*db.User, error)) {
	t.Helper()

	original := authenticateUserFn
	t.Cleanup(func() { authenticateUserFn = original })
	authenticateUserFn = fn
}

func stubRegister(t *testing.T, fn func(context.Context, db.RegisterInput) (*db.User, error)) {
	t.Helper()

	original := registerUserFn
	t.Cleanup(func() { registerUserFn = original })
	registerUserFn = fn
}

func testUser() *db.User {
	return &db.User{ID: testUserID, Name: "Jane Doe", Email: "jane@example.com", PasswordHash: "secret-hash"}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestLoginSuccessSignsIn(t *testing.T) {
	stubAuthenticate(t, func(_ context.Context, email, password string) (*db.User, error) {
		if email != "jane@example.com" || password != "hunter22" {
			return nil, db.ErrInvalidCredentials
		}

		return testUser(), nil
	})

	s := newTestSession()
	rec := performFormPOST(t, newAuthTestApp(s), "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"hunter22"},
	})

	expectRedirect(t, rec, "/")

	if s.Get(sessionKeyAuthenticated) != true || s.Get(sessionKeyUserID) != testUserID.String() {
		t.Fatalf("expected session to be signed in, got %#v", s.data)
	}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "invalid credentials", err: db.ErrInvalidCredentials, want: "Invalid credentials"},
		{name: "database down", err: errTestBoom, want: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubAuthenticate(t, func(context.Context, string, string) (*db.User, error) {
				return nil, tt.err
			})

			s := newTestSession()
			rec := performFormPOST(t, newAuthTestApp(s), "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}})

			expectRedirect(t, rec, "/login")
			expectFlash(t, s, FlashError, tt.want)

			if s.Get(sessionKeyAuthenticated) != nil {
				t.Fatalf("expected session to stay anonymous")
			}
		})
	}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestRegisterPassesProfile(t *testing.T) {
	var got db.RegisterInput

	stubRegister(t, func(_ context.Context, in db.RegisterInput) (*db.User, error) {
		got = in
		return testUser(), nil
	})

	s := newTestSession()
	rec := performFormPOST(t, newAuthTestApp(s), "/register", url.Values{
		"name":          {"Jane Doe"},
		"email":         {"jane@example.com"},
		"password":      {"hunter22"},
		"date_of_birth": {"1980-05-04"},
		"gender":        {"Female"},
		"height":        {"165"},
		"weight":        {"60.5"},
		"blood_type":    {"O+"},
		"allergies":     {"penicillin, latex"},
	})

	expectRedirect(t, rec, "/")
	expectFlash(t, s, FlashSuccess, "Jane Doe")

	if got.Email != "jane@example.com" || got.Profile.Gender == nil || *got.Profile.Gender != db.GenderFemale {
		t.Fatalf("unexpected register input: %#v", got)
	}

	if got.Profile.WeightKG == nil || *got.Profile.WeightKG != 60.5 || len(got.Profile.Allergies) != 2 {
		t.Fatalf("unexpected profile input: %#v", got.Profile)
	}

	if got.Profile.DateOfBirth == nil || got.Profile.DateOfBirth.Year() != 1980 {
		t.Fatalf("expected date of birth, got %v", got.Profile.DateOfBirth)
	}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestRegisterRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		regErr error
		want   string
	}{
		{
			name:   "duplicate email",
			form:   url.Values{"name": {"A"}, "email": {"a@b.c"}, "password": {"password1"}},
			regErr: db.ErrEmailAlreadyRegistered,
			want:   "Email already registered",
		},
		{
			name: "bad height",
			form: url.Values{"name": {"A"}, "email": {"a@b.c"}, "password": {"password1"}, "height": {"-3"}},
			want: "height",
		},
		{
			name: "future birth date",
			form: url.Values{"name": {"A"}, "email": {"a@b.c"}, "password": {"password1"}, "date_of_birth": {"2999-01-01"}},
			want: "date of birth",
		},
		{
			name: "bad gender",
			form: url.Values{"name": {"A"}, "email": {"a@b.c"}, "password": {"password1"}, "gender": {"unicorn"}},
			want: "Gender must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false

			stubRegister(t, func(context.Context, db.RegisterInput) (*db.User, error) {
				called = true
				return nil, tt.regErr
			})

			s := newTestSession()
			rec := performFormPOST(t, newAuthTestApp(s), "/register", tt.form)

			expectRedirect(t, rec, "/register")
			expectFlash(t, s, FlashError, tt.want)

			if tt.regErr == nil && called {
				t.Fatalf("expected invalid profile to be rejected before registering")
			}
		})
	}
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	s := newAuthedSession(testUserID.String())
	rec := httptest.NewRecorder()
	newAuthTestApp(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	expectRedirect(t, rec, "/login")

	if len(s.data) != 0 {
		t.Fatalf("expected empty session, got %#v", s.data)
	}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestAPILogin(t *testing.T) {
	stubAuthenticate(t, func(_ context.Context, _ string, password string) (*db.User, error) {
		if password != "hunter22" {
			return nil, db.ErrInvalidCredentials
		}

		return testUser(), nil
	})

	s := newTestSession()
	f := newAuthTestApp(s)

	rec, body := performJSONPOST(t, f, "/api/auth/login", `{"email":"jane@example.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized || body["success"] != false || body["message"] != "Invalid credentials" {
		t.Fatalf("unexpected failed login response %d %#v", rec.Code, body)
	}

	rec, body = performJSONPOST(t, f, "/api/auth/login", `{"email":"jane@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected login response %d %#v", rec.Code, body)
	}

	user, ok := body["user"].(map[string]interface{})
	if !ok || user["email"] != "jane@example.com" {
		t.Fatalf("expected user in response, got %#v", body["user"])
	}

	if _, leaked := user["PasswordHash"]; leaked || strings.Contains(rec.Body.String(), "secret-hash") {
		t.Fatalf("password hash leaked in response: %s", rec.Body.String())
	}

	rec, _ = performJSONPOST(t, f, "/api/auth/login", `{"email":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed body, got %d", rec.Code)
	}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestAPIRegister(t *testing.T) {
	var got db.RegisterInput

	stubRegister(t, func(_ context.Context, in db.RegisterInput) (*db.User, error) {
		if in.Email == "taken@example.com" {
			return nil, db.ErrEmailAlreadyRegistered
		}

		got = in

		return testUser(), nil
	})

	f := newAuthTestApp(newTestSession())

	rec, body := performJSONPOST(t, f, "/api/auth/register", `{
		"name": "Jane Doe", "email": "jane@example.com", "password": "hunter22",
		"dateOfBirth": "1980-05-04T00:00:00.000Z", "gender": "female",
		"height": 165, "weight": "60", "bloodType": "O+",
		"allergies": ["penicillin"], "medications": "metformin, statin"
	}`)
	if rec.Code != http.StatusCreated || body["message"] != "Registration successful" {
		t.Fatalf("unexpected register response %d %#v", rec.Code, body)
	}

	if got.Profile.HeightCM == nil || *got.Profile.HeightCM != 165 {
		t.Fatalf("expected numeric height to be accepted, got %#v", got.Profile.HeightCM)
	}

	if len(got.Profile.Allergies) != 1 || len(got.Profile.Medications) != 2 {
		t.Fatalf("unexpected lists %v / %v", got.Profile.Allergies, got.Profile.Medications)
	}

	rec, body = performJSONPOST(t, f, "/api/auth/register", `{"name":"A","email":"taken@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusBadRequest || body["message"] != "Email already registered" {
		t.Fatalf("unexpected duplicate response %d %#v", rec.Code, body)
	}
}

//nolint:paralleltest // Overrides package-level DB function variables.
func TestAPICheckConnection(t *testing.T) {
	original := checkConnectionFn
	t.Cleanup(func() { checkConnectionFn = original })

	for _, connected := range []bool{true, false} {
		t.Run(fmt.Sprint(connected), func(t *testing.T) {
			checkConnectionFn = func(context.Context) error {
				if connected {
					return nil
				}

				return errTestBoom
			}

			rec := httptest.NewRecorder()
			newAuthTestApp(newTestSession()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/check-connection", nil))

			var body map[string]bool
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if rec.Code != http.StatusOK || body["connected"] != connected {
				t.Fatalf("unexpected response %d %#v", rec.Code, body)
			}
		})
	}
}
