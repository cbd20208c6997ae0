// Package testutils holds helpers for tests that need a real registry
// mirror database.
package testutils

import (
	"context"
	"os"
	"testing"

	"github.com/anncsu/anncsu-update/dbconn"
	"github.com/stretchr/testify/require"
)

const (
	PostgresEnv = "POSTGRES_URL"
	MySQLEnv    = "MYSQL_URL"
)

// ConnStr returns the connection string in envVar, skipping the test when
// it is unset.
func ConnStr(t *testing.T, envVar string) string {
	connStr, ok := os.LookupEnv(envVar)
	if !ok || connStr == "" {
		t.Skipf("%s not set", envVar)
	}
	return connStr
}

// Connect connects to the database in envVar and closes the connection when
// the test finishes.
func Connect(t *testing.T, envVar string) dbconn.Conn {
	ctx := context.Background()
	conn, err := dbconn.Connect(ctx, dbconn.ID(envVar), ConnStr(t, envVar))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(ctx) })
	return conn
}

// Exec runs statements against conn, failing the test on error.
func Exec(t *testing.T, conn dbconn.Conn, stmts ...string) {
	ctx := context.Background()
	for _, stmt := range stmts {
		var err error
		switch conn := conn.(type) {
		case *dbconn.PGConn:
			_, err = conn.Exec(ctx, stmt)
		case *dbconn.MySQLConn:
			_, err = conn.ExecContext(ctx, stmt)
		default:
			t.Fatalf("unhandled Conn type: %T", conn)
		}
		require.NoError(t, err, stmt)
	}
}
