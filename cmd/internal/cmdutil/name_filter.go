package cmdutil

import (
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var tableFilter = ".*"

func RegisterNameFilterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&tableFilter,
		"table-filter",
		tableFilter,
		"POSIX regexp filter for the geodiff tables to reconcile",
	)
}

func TableFilter() (*regexp.Regexp, error) {
	re, err := regexp.CompilePOSIX(tableFilter)
	if err != nil {
		return nil, errors.Wrapf(err, "error compiling table filter %q", tableFilter)
	}
	return re, nil
}
