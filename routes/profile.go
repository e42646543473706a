/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/labvault/db"
)

var (
	updateHealthProfileFn = db.UpdateHealthProfile
	countActiveSessionsFn = db.CountActiveSessions
)

// ViewProfile renders the health profile page with an edit form
func ViewProfile(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	data["IsProfile"] = true
	ctx := c.Request().Context()

	user, err := resolveSessionUser(ctx, s)
	if err != nil {
		logger.Error("Failed to resolve session user", "error", err)
		renderError(t, data, http.StatusInternalServerError, "Unable to resolve current user")

		return
	}

	data["User"] = user

	profile, err := getHealthProfileFn(ctx, user.ID.String())
	if err != nil {
		logger.Error("Failed to load health profile", "user_id", user.ID, "error", err)
		data["Error"] = "Failed to load health profile"
	}

	if profile != nil {
		data["Profile"] = profile
		data["Allergies"] = strings.Join(profile.Allergies, ", ")
		data["Medications"] = strings.Join(profile.Medications, ", ")

		if age := profile.GetAge(time.Now()); age != nil {
			data["CurrentAge"] = *age
		}

		if bmi := profile.BMI(); bmi != nil {
			data["BMI"] = *bmi
		}

		if profile.DateOfBirth != nil {
			data["DateOfBirth"] = profile.DateOfBirth.Format(dateInputLayout)
		}

		if profile.Gender != nil {
			data["Gender"] = string(*profile.Gender)
		}
	}

	if n, err := countActiveSessionsFn(ctx, user.ID.String()); err != nil {
		logger.Warn("Failed to count sessions", "user_id", user.ID, "error", err)
	} else {
		data["ActiveSessions"] = n
	}

	t.HTML(http.StatusOK, "profile")
}

// UpdateProfile saves the health profile form
func UpdateProfile(c flamego.Context, s session.Session) {
	userID, ok := getSessionUserID(s)
	if !ok {
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	input, err := profileFieldsFromForm(c.Request()).input()
	if err != nil {
		SetErrorFlash(s, registrationMessage(err))
		c.Redirect("/profile", http.StatusSeeOther)

		return
	}

	if err := updateHealthProfileFn(c.Request().Context(), userID, input); err != nil {
		logger.Error("Failed to update health profile", "user_id", userID, "error", err)
		SetErrorFlash(s, "Failed to update health profile")
		c.Redirect("/profile", http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "Health profile updated")
	c.Redirect("/profile", http.StatusSeeOther)
}
