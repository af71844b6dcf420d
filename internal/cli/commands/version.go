package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Print the leapquery version with the dialects and target adapters compiled into this binary.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "leapquery v%s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintf(w, "dialects: %s\n", strings.Join(dialect.List(), ", "))
			_, _ = fmt.Fprintf(w, "adapters: %s\n", strings.Join(adapter.ListAdapters(), ", "))
		},
	}
}
