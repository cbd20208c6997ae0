package validate

import (
	"fmt"
	"os"
	"sort"

	"github.com/anncsu/anncsu-update/cmd/internal/cmdutil"
	"github.com/anncsu/anncsu-update/geodiff"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <report.json>...",
		Short: "Check geodiff reports without contacting ANNCSU.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			docs := make(map[string][]byte, len(args))
			for _, p := range args {
				text, err := os.ReadFile(p)
				if err != nil {
					return errors.Wrapf(err, "error reading %s", p)
				}
				docs[p] = text
			}
			results := geodiff.ValidateAll(docs)
			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			failed := 0
			for _, name := range names {
				if err := results[name]; err != nil {
					failed++
					logger.Error().Str("file", name).Err(err).Msgf("invalid geodiff report")
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
			}
			if failed > 0 {
				return errors.Newf("%d of %d reports are invalid", failed, len(names))
			}
			return nil
		},
	}
}
