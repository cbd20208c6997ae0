// Package dbconn connects to the databases that mirror the ANNCSU register.
package dbconn

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

type ID string

type Conn interface {
	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	ConnStr() string
	Dialect() string
}

// Connect dispatches on the scheme of connStr. postgres:// and
// postgresql:// URLs connect through pgx; mysql:// URLs and bare
// go-sql-driver DSNs prefixed with mysql:// connect through database/sql.
func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, errors.Newf("empty connection string")
	}

	before := strings.SplitN(connStr, "://", 2)
	if len(before) < 2 {
		return nil, errors.Newf("connection string %s has no scheme", redact(connStr))
	}

	switch {
	case strings.Contains(before[0], "postgres"):
		u, err := url.Parse(connStr)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse url: %s", redact(connStr))
		}
		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(before[0], "mysql"):
		return ConnectMySQL(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised scheme %s from %s", before[0], redact(connStr))
}

// redact hides the password of a URL style connection string.
func redact(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
