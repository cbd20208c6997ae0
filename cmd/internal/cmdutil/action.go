package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ActionInput returns the value of flag on cmd, falling back to the
// GitHub Actions input of the same name (INPUT_<NAME>).
func ActionInput(cmd *cobra.Command, flag string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String()
	}
	env := "INPUT_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	if f := cmd.Flags().Lookup(flag); f != nil {
		return f.Value.String()
	}
	return ""
}

// WriteActionError writes an error workflow command, which the Actions
// runner turns into an annotation on the run.
func WriteActionError(w io.Writer, err error) {
	msg := err.Error()
	msg = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(msg)
	_, _ = fmt.Fprintf(w, "::error::%s\n", msg)
}
