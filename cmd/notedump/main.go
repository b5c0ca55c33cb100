// Command notedump is the standalone debug tool spec.md §6 allows for:
// it dumps a packed update file's decoded metadata and content length, a
// meta file's bookkeeping state, or the set of notes found under a notes
// root — without starting a Manager or watching anything.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "notedump",
	Short: "Inspect notecove's on-disk note log without running a sync manager",
}
