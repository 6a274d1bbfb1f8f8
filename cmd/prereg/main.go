// Command prereg drives the pre-registration flow from a terminal.
//
//	prereg run --server https://api.example.com
//	prereg config --config prereg.yaml
//
// Configuration comes from a YAML file (--config) or from PREREG_*
// environment variables, optionally loaded from a dotenv file (--env-file).
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
