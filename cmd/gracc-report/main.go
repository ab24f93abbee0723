// Command gracc-report runs one scheduled accounting report per
// invocation.
package main

import (
	"os"

	"gracc-reporting/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
