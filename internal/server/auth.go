package server

import (
	"database/sql"
	"errors"
	"net/http"
)

type hostSession struct {
	HostID string
}

var errNoHostSession = errors.New("no valid host session")

const hostCookieName = "host_session"

// hostFromRequest reads the host_session cookie and looks up the session.
func hostFromRequest(r *http.Request, db *sql.DB) (hostSession, error) {
	cookie, err := r.Cookie(hostCookieName)
	if err != nil || cookie.Value == "" {
		return hostSession{}, errNoHostSession
	}

	var s hostSession
	err = db.QueryRowContext(r.Context(), `
		SELECT h.id
		FROM host_sessions s
		JOIN hosts h ON h.id = s.host_id
		WHERE s.id = ?
	`, cookie.Value).Scan(&s.HostID)
	if errors.Is(err, sql.ErrNoRows) {
		return hostSession{}, errNoHostSession
	}
	return s, err
}
