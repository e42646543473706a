/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flamego/session"
	"github.com/jackc/pgx/v5"
)

var errInvalidSessionConfig = errors.New("invalid PostgresSessionConfig")

// PostgresSessionConfig contains options for the PostgreSQL session store
type PostgresSessionConfig struct {
	// Lifetime is the idle duration after which a session expires. Default 7 days.
	Lifetime time.Duration
	// TableName defaults to "flamego_sessions".
	TableName string
	Encoder   session.Encoder
	Decoder   session.Decoder
}

// PostgresSessionStore implements session.Store on the shared pool.
type PostgresSessionStore struct {
	config PostgresSessionConfig
}

// PostgresSessionIniter returns the Initer for the PostgreSQL session store
func PostgresSessionIniter() session.Initer {
	return func(_ context.Context, args ...interface{}) (session.Store, error) {
		var config PostgresSessionConfig
		if len(args) > 0 {
			var ok bool
			config, ok = args[0].(PostgresSessionConfig)
			if !ok {
				return nil, errInvalidSessionConfig
			}
		}

		if config.Lifetime == 0 {
			config.Lifetime = 7 * 24 * time.Hour
		}
		if config.TableName == "" {
			config.TableName = "flamego_sessions"
		}
		if config.Encoder == nil {
			config.Encoder = session.GobEncoder
		}
		if config.Decoder == nil {
			config.Decoder = session.GobDecoder
		}

		return &PostgresSessionStore{config: config}, nil
	}
}

func (s *PostgresSessionStore) table() string {
	return pgx.Identifier{s.config.TableName}.Sanitize()
}

// Exist returns true if the session with given ID exists and hasn't expired
func (s *PostgresSessionStore) Exist(ctx context.Context, sid string) bool {
	if pool == nil {
		return false
	}

	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+s.table()+` WHERE id = $1 AND expires_at > NOW())`,
		sid,
	).Scan(&exists)

	return err == nil && exists
}

// Read returns the session with given ID, or a fresh session with that ID.
func (s *PostgresSessionStore) Read(ctx context.Context, sid string) (session.Session, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	// The session middleware writes the cookie itself.
	idWriter := func(http.ResponseWriter, *http.Request, string) {}

	var data []byte
	err := pool.QueryRow(ctx,
		`SELECT data FROM `+s.table()+` WHERE id = $1 AND expires_at > NOW()`,
		sid,
	).Scan(&data)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if len(data) == 0 {
		return session.NewBaseSession(sid, s.config.Encoder, idWriter), nil
	}

	values, err := s.config.Decoder(data)
	if err != nil {
		logger.Warn("Discarding undecodable session", "error", err)
		return session.NewBaseSession(sid, s.config.Encoder, idWriter), nil
	}

	return session.NewBaseSessionWithData(sid, s.config.Encoder, idWriter, values), nil
}

// Destroy deletes session with given ID from the session store completely
func (s *PostgresSessionStore) Destroy(ctx context.Context, sid string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	_, err := pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE id = $1`, sid)

	return err
}

// Touch updates the expiry time of the session with given ID
func (s *PostgresSessionStore) Touch(ctx context.Context, sid string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	_, err := pool.Exec(ctx,
		`UPDATE `+s.table()+` SET expires_at = $1 WHERE id = $2`,
		time.Now().Add(s.config.Lifetime), sid,
	)

	return err
}

// Save persists session data to the session store
func (s *PostgresSessionStore) Save(ctx context.Context, sess session.Session) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	data, err := sess.Encode()
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO `+s.table()+` (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at`,
		sess.ID(), data, time.Now().Add(s.config.Lifetime),
	)

	return err
}

// GC removes expired sessions.
func (s *PostgresSessionStore) GC(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tag, err := pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE expires_at < NOW()`)
	if err != nil {
		return err
	}

	if n := tag.RowsAffected(); n > 0 {
		logger.Debug("Removed expired sessions", "count", n)
	}

	return nil
}

// CountActiveSessions returns how many live sessions in the default table
// are signed in as userID.
func CountActiveSessions(ctx context.Context, userID string) (int, error) {
	if pool == nil {
		return 0, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `SELECT data FROM flamego_sessions WHERE expires_at > NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	count := 0

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return 0, fmt.Errorf("failed to scan session: %w", err)
		}

		values, err := session.GobDecoder(data)
		if err != nil {
			continue
		}

		if id, ok := values["user_id"].(string); ok && id == userID {
			count++
		}
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating sessions: %w", err)
	}

	return count, nil
}
