// Command recache validates schemas, applies operations, evaluates queries,
// runs conformance scenarios and maintains transform journals.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/recache/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
