// Command schedulerctl runs maintenance tasks against a scheduler deployment.
package main

import (
	"os"
)

// version is set at build time.
var version = "dev"

func main() {
	root := newRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
