// Package sqlregistry looks up address records in a PostgreSQL or MySQL
// mirror of the ANNCSU register.
package sqlregistry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/anncsu/anncsu-update/dbconn"
	"github.com/anncsu/anncsu-update/registry"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Schema names the mirror table and its columns. GeometryColumn is
// optional and holds the base64 encoded geometry as text.
type Schema struct {
	Table          string
	IDColumn       string
	XColumn        string
	YColumn        string
	GeometryColumn string
}

func DefaultSchema() Schema {
	return Schema{
		Table:    "civici",
		IDColumn: "progr_civico",
		XColumn:  "coord_x",
		YColumn:  "coord_y",
	}
}

func (s Schema) Verify() error {
	for _, c := range []struct{ name, val string }{
		{"table", s.Table},
		{"id column", s.IDColumn},
		{"x column", s.XColumn},
		{"y column", s.YColumn},
	} {
		if c.val == "" {
			return errors.Newf("registry mirror %s must be set", c.name)
		}
	}
	return nil
}

type quoteFn func(string) string

func quoteMySQL(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// quoteName quotes each dot separated part of a possibly qualified name.
func quoteName(name string, quote quoteFn) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

func (s Schema) query(dialect string) (string, error) {
	var quote quoteFn
	var placeholder string
	switch dialect {
	case "PostgreSQL", "CockroachDB":
		quote, placeholder = pq.QuoteIdentifier, "$1"
	case "MySQL":
		quote, placeholder = quoteMySQL, "?"
	default:
		return "", errors.Newf("unsupported registry mirror dialect %s", dialect)
	}
	geom := "NULL"
	if s.GeometryColumn != "" {
		geom = quote(s.GeometryColumn)
	}
	return fmt.Sprintf(
		"SELECT %s, %s, %s FROM %s WHERE %s = %s",
		quote(s.XColumn),
		quote(s.YColumn),
		geom,
		quoteName(s.Table, quote),
		quote(s.IDColumn),
		placeholder,
	), nil
}

// Lookup implements registry.Lookup against a mirror database.
type Lookup struct {
	logger zerolog.Logger
	conn   dbconn.Conn
	query  string
}

var _ registry.Lookup = (*Lookup)(nil)

func New(logger zerolog.Logger, conn dbconn.Conn, schema Schema) (*Lookup, error) {
	if err := schema.Verify(); err != nil {
		return nil, err
	}
	q, err := schema.query(conn.Dialect())
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("query", q).Str("conn", string(conn.ID())).Msgf("registry mirror query")
	return &Lookup{logger: logger, conn: conn, query: q}, nil
}

func (l *Lookup) LookupByID(ctx context.Context, id int64) (registry.LookupResult, error) {
	var records []registry.Record
	var err error
	switch conn := l.conn.(type) {
	case *dbconn.PGConn:
		records, err = l.lookupPG(ctx, conn, id)
	case *dbconn.MySQLConn:
		records, err = l.lookupMySQL(ctx, conn, id)
	default:
		return registry.LookupResult{}, errors.AssertionFailedf("unsupported connection %T", l.conn)
	}
	if err != nil {
		return registry.LookupResult{}, errors.Wrapf(err, "error querying registry mirror for %d", id)
	}
	return registry.LookupResult{Status: registry.StatusOK, Records: records}, nil
}

func (l *Lookup) lookupPG(ctx context.Context, conn *dbconn.PGConn, id int64) ([]registry.Record, error) {
	rows, err := conn.Query(ctx, l.query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []registry.Record{}
	for rows.Next() {
		var rec registry.Record
		var geom *string
		if err := rows.Scan(&rec.CoordX, &rec.CoordY, &geom); err != nil {
			return nil, err
		}
		if geom != nil {
			rec.EncodedGeometry = *geom
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (l *Lookup) lookupMySQL(ctx context.Context, conn *dbconn.MySQLConn, id int64) ([]registry.Record, error) {
	rows, err := conn.QueryContext(ctx, l.query, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	records := []registry.Record{}
	for rows.Next() {
		var x, y sql.NullFloat64
		var geom sql.NullString
		if err := rows.Scan(&x, &y, &geom); err != nil {
			return nil, err
		}
		rec := registry.Record{EncodedGeometry: geom.String}
		if x.Valid {
			rec.CoordX = registry.Float(x.Float64)
		}
		if y.Valid {
			rec.CoordY = registry.Float(y.Float64)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
