/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/labvault/db"
)

var (
	registerUserFn     = db.RegisterUser
	authenticateUserFn = db.AuthenticateUser
	checkConnectionFn  = db.CheckConnection
)

// LoginForm renders the login page
func LoginForm(c flamego.Context, t template.Template, data template.Data) {
	data["HeaderOnly"] = true
	data["Email"] = c.Query("email")
	t.HTML(http.StatusOK, "login")
}

// Login handles the login form submission
func Login(c flamego.Context, s session.Session) {
	email := c.Request().FormValue("email")
	password := c.Request().FormValue("password")

	user, err := authenticateUserFn(c.Request().Context(), email, password)
	if err != nil {
		if !errors.Is(err, db.ErrInvalidCredentials) {
			logger.Error("Failed to authenticate user", "error", err)
			SetErrorFlash(s, "Login is unavailable, please try again later")
		} else {
			logAccessDenied(c, s, "invalid_credentials", http.StatusSeeOther, "/login")
			SetErrorFlash(s, "Invalid credentials")
		}

		c.Redirect("/login", http.StatusSeeOther)

		return
	}

	signIn(s, user)
	logger.Info("User signed in", "user_id", user.ID)
	c.Redirect("/", http.StatusSeeOther)
}

// RegisterForm renders the registration page
func RegisterForm(t template.Template, data template.Data) {
	data["HeaderOnly"] = true
	t.HTML(http.StatusOK, "register")
}

// Register handles the registration form submission
func Register(c flamego.Context, s session.Session) {
	r := c.Request()

	profile, err := profileFieldsFromForm(r).input()
	if err != nil {
		SetErrorFlash(s, registrationMessage(err))
		c.Redirect("/register", http.StatusSeeOther)

		return
	}

	user, err := registerUserFn(r.Context(), db.RegisterInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Profile:  profile,
	})
	if err != nil {
		if _, ok := registrationStatus(err); !ok {
			logger.Error("Failed to register user", "error", err)
		}

		SetErrorFlash(s, registrationMessage(err))
		c.Redirect("/register", http.StatusSeeOther)

		return
	}

	signIn(s, user)
	logger.Info("User registered", "user_id", user.ID)
	SetSuccessFlash(s, "Welcome to labvault, "+user.Name)
	c.Redirect("/", http.StatusSeeOther)
}

// Logout handles logout request
func Logout(s session.Session, c flamego.Context) {
	s.Delete(sessionKeyAuthenticated)
	s.Delete(sessionKeyUserID)
	s.Delete(sessionKeyUserName)
	c.Redirect("/login", http.StatusSeeOther)
}

// RequireAuth is a middleware that checks if user is authenticated
func RequireAuth(s session.Session, c flamego.Context) {
	authenticated, ok := s.Get(sessionKeyAuthenticated).(bool)
	if !ok || !authenticated {
		logAccessDenied(c, s, "unauthenticated", http.StatusSeeOther, "/login")
		c.Redirect("/login", http.StatusSeeOther)

		return
	}

	c.Next()
}

// RedirectIfAuthenticated sends signed-in users away from the login and
// registration pages.
func RedirectIfAuthenticated(s session.Session, c flamego.Context) {
	if authenticated, _ := s.Get(sessionKeyAuthenticated).(bool); authenticated {
		c.Redirect("/", http.StatusSeeOther)
		return
	}

	c.Next()
}

// registrationStatus maps expected registration failures to a status code.
// The boolean is false for unexpected errors.
func registrationStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, db.ErrEmailAlreadyRegistered),
		errors.Is(err, db.ErrNameRequired),
		errors.Is(err, db.ErrEmailRequired),
		errors.Is(err, db.ErrPasswordTooShort),
		errors.Is(err, db.ErrInvalidGender),
		errors.Is(err, errInvalidDate),
		errors.Is(err, errInvalidNumber):
		return http.StatusBadRequest, true
	default:
		return http.StatusInternalServerError, false
	}
}

func registrationMessage(err error) string {
	switch {
	case errors.Is(err, db.ErrEmailAlreadyRegistered):
		return "Email already registered"
	case errors.Is(err, db.ErrNameRequired):
		return "Name is required"
	case errors.Is(err, db.ErrEmailRequired):
		return "A valid email is required"
	case errors.Is(err, db.ErrPasswordTooShort):
		return "Password must be at least 8 characters"
	case errors.Is(err, db.ErrInvalidGender):
		return "Gender must be male, female or other"
	case errors.Is(err, errInvalidDate), errors.Is(err, errInvalidNumber):
		return "Please check the health profile fields: " + err.Error()
	default:
		return "Internal server error"
	}
}

// ========== JSON API ==========

type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    interface{} `json:"user,omitempty"`
}

func writeJSON(c flamego.Context, status int, v interface{}) {
	c.ResponseWriter().Header().Set("Content-Type", "application/json")
	c.ResponseWriter().WriteHeader(status)

	if err := json.NewEncoder(c.ResponseWriter()).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", "error", err)
	}
}

// jsonText accepts a JSON string or number, so clients may send
// "height": 170 or "height": "170".
type jsonText string

func (t *jsonText) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = jsonText(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	*t = jsonText(n.String())

	return nil
}

// jsonList accepts a JSON array of strings or a comma separated string.
type jsonList string

func (l *jsonList) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err == nil {
		*l = jsonList(strings.Join(items, ","))
		return nil
	}

	var t jsonText
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}

	*l = jsonList(t)

	return nil
}

type apiRegisterRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DateOfBirth jsonText `json:"dateOfBirth"`
	Gender      jsonText `json:"gender"`
	Height      jsonText `json:"height"`
	Weight      jsonText `json:"weight"`
	BloodType   jsonText `json:"bloodType"`
	Allergies   jsonList `json:"allergies"`
	Medications jsonList `json:"medications"`
}

func (req apiRegisterRequest) profile() profileFields {
	dob := string(req.DateOfBirth)
	// Accept full timestamps such as "1990-04-01T00:00:00.000Z".
	if len(dob) > len(dateInputLayout) && dob[len(dateInputLayout)] == 'T' {
		dob = dob[:len(dateInputLayout)]
	}

	return profileFields{
		DateOfBirth: dob,
		Gender:      string(req.Gender),
		Height:      string(req.Height),
		Weight:      string(req.Weight),
		BloodType:   string(req.BloodType),
		Allergies:   string(req.Allergies),
		Medications: string(req.Medications),
	}
}

// APIRegister creates an account from a JSON body.
func APIRegister(c flamego.Context, s session.Session) {
	var req apiRegisterRequest
	if err := json.NewDecoder(c.Request().Request.Body).Decode(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, apiResponse{Message: "Invalid request body"})
		return
	}

	profile, err := req.profile().input()
	if err != nil {
		writeJSON(c, http.StatusBadRequest, apiResponse{Message: registrationMessage(err)})
		return
	}

	user, err := registerUserFn(c.Request().Context(), db.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Profile:  profile,
	})
	if err != nil {
		status, expected := registrationStatus(err)
		if !expected {
			logger.Error("Failed to register user", "error", err)
		}

		writeJSON(c, status, apiResponse{Message: registrationMessage(err)})

		return
	}

	signIn(s, user)
	logger.Info("User registered", "user_id", user.ID, "via", "api")
	writeJSON(c, http.StatusCreated, apiResponse{Success: true, Message: "Registration successful", User: user})
}

type apiLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APILogin signs a user in from a JSON body.
func APILogin(c flamego.Context, s session.Session) {
	var req apiLoginRequest
	if err := json.NewDecoder(c.Request().Request.Body).Decode(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, apiResponse{Message: "Invalid request body"})
		return
	}

	user, err := authenticateUserFn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrInvalidCredentials) {
			logAccessDenied(c, s, "invalid_credentials", http.StatusUnauthorized, "")
			writeJSON(c, http.StatusUnauthorized, apiResponse{Message: "Invalid credentials"})

			return
		}

		logger.Error("Failed to authenticate user", "error", err)
		writeJSON(c, http.StatusInternalServerError, apiResponse{
			Message: "Database connection failed. Please try again later.",
		})

		return
	}

	signIn(s, user)
	writeJSON(c, http.StatusOK, apiResponse{Success: true, User: user})
}

// APICheckConnection reports whether the database answers a ping.
func APICheckConnection(c flamego.Context) {
	connected := true
	if err := checkConnectionFn(c.Request().Context()); err != nil {
		logger.Warn("Database connection check failed", "error", err)
		connected = false
	}

	writeJSON(c, http.StatusOK, map[string]bool{"connected": connected})
}
