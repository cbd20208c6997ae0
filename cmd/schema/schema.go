package schema

import (
	"encoding/json"
	"fmt"

	"github.com/anncsu/anncsu-update/geodiff"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var (
		outDir string
		kind   string
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print or write the JSON schemas of the geodiff report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				paths, err := geodiff.WriteSchemas(outDir)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}
			var s map[string]interface{}
			if kind == "" {
				s = geodiff.Schema()
			} else {
				k, err := geodiff.ParseActionKind(kind)
				if err != nil {
					return err
				}
				if s, err = geodiff.EntrySchema(k); err != nil {
					return err
				}
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return errors.Wrap(err, "error encoding schema")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "write every schema into this directory")
	cmd.Flags().StringVar(&kind, "kind", "", "print the entry schema of one kind: insert, update or delete")
	return cmd
}
