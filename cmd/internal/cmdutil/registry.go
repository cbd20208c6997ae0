package cmdutil

import (
	"context"
	"net/url"

	"github.com/anncsu/anncsu-update/dbconn"
	"github.com/anncsu/anncsu-update/registry"
	"github.com/anncsu/anncsu-update/registry/anncsuapi"
	"github.com/anncsu/anncsu-update/registry/sqlregistry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

type registryConfig struct {
	pathTemplate  string
	lookupsPerSec float64
	mirror        sqlregistry.Schema
}

var registryCfg = registryConfig{
	pathTemplate:  anncsuapi.DefaultPathTemplate,
	lookupsPerSec: float64(anncsuapi.DefaultRateLimit),
	mirror:        sqlregistry.DefaultSchema(),
}

func RegisterRegistryFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&registryCfg.pathTemplate,
		"registry-path",
		registryCfg.pathTemplate,
		"lookup path relative to the ANNCSU API url; {id} is replaced with the address identifier",
	)
	cmd.PersistentFlags().Float64Var(
		&registryCfg.lookupsPerSec,
		"registry-lookups-per-second",
		registryCfg.lookupsPerSec,
		"maximum number of ANNCSU API lookups per second",
	)
	cmd.PersistentFlags().StringVar(
		&registryCfg.mirror.Table,
		"mirror-table",
		registryCfg.mirror.Table,
		"table holding the register when the registry url is a database",
	)
	cmd.PersistentFlags().StringVar(
		&registryCfg.mirror.IDColumn,
		"mirror-id-column",
		registryCfg.mirror.IDColumn,
		"address identifier column of the mirror table",
	)
	cmd.PersistentFlags().StringVar(
		&registryCfg.mirror.XColumn,
		"mirror-x-column",
		registryCfg.mirror.XColumn,
		"x coordinate column of the mirror table",
	)
	cmd.PersistentFlags().StringVar(
		&registryCfg.mirror.YColumn,
		"mirror-y-column",
		registryCfg.mirror.YColumn,
		"y coordinate column of the mirror table",
	)
	cmd.PersistentFlags().StringVar(
		&registryCfg.mirror.GeometryColumn,
		"mirror-geometry-column",
		registryCfg.mirror.GeometryColumn,
		"optional base64 geometry column of the mirror table",
	)
}

// LoadRegistry builds the registry lookup for registryURL. HTTP(S) URLs use
// the ANNCSU API with token as bearer credential; database URLs use a
// mirror table. The returned close function releases any connection.
func LoadRegistry(
	ctx context.Context, logger zerolog.Logger, registryURL string, token string,
) (registry.Lookup, func(), error) {
	if registryURL == "" {
		return nil, nil, errors.New("registry url must be set")
	}
	u, err := url.Parse(registryURL)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error parsing registry url")
	}
	switch u.Scheme {
	case "http", "https":
		c, err := anncsuapi.New(
			logger,
			registryURL,
			anncsuapi.StaticToken(token),
			anncsuapi.WithPathTemplate(registryCfg.pathTemplate),
			anncsuapi.WithRateLimit(rate.Limit(registryCfg.lookupsPerSec), 1),
		)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	conn, err := dbconn.Connect(ctx, "registry", registryURL)
	if err != nil {
		return nil, nil, err
	}
	l, err := sqlregistry.New(logger, conn, registryCfg.mirror)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, nil, err
	}
	return l, func() { _ = conn.Close(ctx) }, nil
}
