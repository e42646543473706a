/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/labvault/db"
)

// Session keys set on login.
const (
	sessionKeyAuthenticated = "authenticated"
	sessionKeyUserID        = "user_id"
	sessionKeyUserName      = "user_name"
)

var getUserByIDFn = db.GetUserByID

// UserContextInjector loads session user metadata into templates.
func UserContextInjector() flamego.Handler {
	return func(s session.Session, data template.Data) {
		authenticated, _ := s.Get(sessionKeyAuthenticated).(bool)
		data["IsAuthenticated"] = authenticated
		if !authenticated {
			return
		}

		if name, ok := s.Get(sessionKeyUserName).(string); ok {
			data["UserName"] = name
		}
	}
}

func getSessionUserID(s session.Session) (string, bool) {
	if val := s.Get(sessionKeyUserID); val != nil {
		if userID, ok := val.(string); ok && userID != "" {
			return userID, true
		}
	}

	return "", false
}

// signIn marks the session as belonging to user.
func signIn(s session.Session, user *db.User) {
	s.Set(sessionKeyAuthenticated, true)
	s.Set(sessionKeyUserID, user.ID.String())
	s.Set(sessionKeyUserName, user.Name)
}

func resolveSessionUser(ctx context.Context, s session.Session) (*db.User, error) {
	userID, ok := getSessionUserID(s)
	if !ok {
		return nil, errSessionUserMissing
	}

	user, err := getUserByIDFn(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name, _ := s.Get(sessionKeyUserName).(string); name != user.Name {
		s.Set(sessionKeyUserName, user.Name)
	}

	return user, nil
}
