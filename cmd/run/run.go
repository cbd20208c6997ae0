package run

import (
	"context"
	"fmt"
	"time"

	"github.com/anncsu/anncsu-update/blobstore"
	"github.com/anncsu/anncsu-update/cmd/internal/cmdutil"
	"github.com/anncsu/anncsu-update/executor/cliexec"
	"github.com/anncsu/anncsu-update/geometry/gpkg"
	"github.com/anncsu/anncsu-update/reconcile"
	"github.com/anncsu/anncsu-update/reconcile/report"
	"github.com/anncsu/anncsu-update/settings"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var ErrEntriesFailed = errors.New("some geodiff entries could not be reconciled")

func Command() *cobra.Command {
	var (
		envFile string
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Push coordinate changes from a geodiff report to ANNCSU.",
		Long: `Run reads a geodiff report, authenticates against ANNCSU and updates the
coordinates of every address whose position drifted from the register.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			source := cmdutil.ActionInput(cmd, "geodiff-report")
			if source == "" {
				return errors.New("geodiff report must be set with --geodiff-report or INPUT_GEODIFF_REPORT")
			}
			token := cmdutil.ActionInput(cmd, "token")
			if token == "" {
				return errors.New("token must be set with --token or INPUT_TOKEN")
			}

			s, err := settings.Load(envFile, cmd.Flags(), map[string]string{
				settings.KeyMunicipalityCode:  "codice-comune",
				settings.KeyDistanceThreshold: "distance-threshold",
				settings.KeyRegistryURL:       "registry-url",
				settings.KeyCLIPath:           "anncsu-path",
			})
			if err != nil {
				return err
			}
			tableFilter, err := cmdutil.TableFilter()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			lookup, closeRegistry, err := cmdutil.LoadRegistry(ctx, logger, s.RegistryURL, token)
			if err != nil {
				return err
			}
			defer closeRegistry()

			reporter := report.CombinedReporter{}
			reporter.Reporters = append(
				reporter.Reporters,
				report.LogReporter{Logger: logger},
				report.MetricsReporter{},
			)
			defer reporter.Close()

			exec := cliexec.New(logger, s.CLIPath, cliexec.WithEnv("ANNCSU_TOKEN="+token))
			reporter.Report(report.StatusReport{Info: "reconciliation in progress"})
			res, err := reconcile.Run(
				ctx,
				source,
				reconcile.Config{
					MunicipalityCode:  s.MunicipalityCode,
					DistanceThreshold: s.DistanceThreshold,
					UpdateMethod:      s.UpdateMethod,
				},
				logger,
				reporter,
				reconcile.Deps{Lookup: lookup, Executor: exec, Decoder: gpkg.Decoder{}},
				reconcile.WithAPIType(s.APIType),
				reconcile.WithOpener(blobstore.NewOpener(logger)),
				reconcile.WithTableFilter(tableFilter),
				reconcile.WithDryRun(dryRun),
			)
			if err != nil {
				return err
			}
			if !res.Success {
				return ErrEntriesFailed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ANNCSU update completed: %d entries reconciled\n", len(res.Outcomes))
			return nil
		},
	}

	cmd.Flags().String("geodiff-report", "", "geodiff report as a file path, s3:// or gs:// url, or JSON text (INPUT_GEODIFF_REPORT)")
	cmd.Flags().String("token", "", "ANNCSU access token (INPUT_TOKEN)")
	cmd.Flags().String("codice-comune", "", "ISTAT code of the comune (ANNCSU_UPDATE_CODICE_COMUNE)")
	cmd.Flags().Float64("distance-threshold", 0, "per axis distance below which coordinates are unchanged (ANNCSU_UPDATE_COORDINATE_DISTANCE_THRESHOLD)")
	cmd.Flags().String("registry-url", "", "ANNCSU API url or registry mirror connection string (ANNCSU_UPDATE_REGISTRY_URL)")
	cmd.Flags().String("anncsu-path", "", "path of the anncsu command line tool (ANNCSU_UPDATE_CLI_PATH)")
	cmd.Flags().StringVar(&envFile, "env-file", settings.DefaultEnvFile, "dotenv file holding ANNCSU_UPDATE_ settings")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decide updates without issuing them")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this long; 0 means no limit")
	cmdutil.RegisterNameFilterFlags(cmd)
	cmdutil.RegisterRegistryFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	return cmd
}
