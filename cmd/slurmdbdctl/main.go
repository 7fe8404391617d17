// slurmdbdctl manages a host's slurmdbd deployment: configuration
// rendering, the accounting database wiring, service supervision,
// auth material, and drift detection.
package main

import (
	"fmt"
	"os"

	"slurmdbdops/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
