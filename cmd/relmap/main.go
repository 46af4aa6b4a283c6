// Command relmap resolves relational mapping declarations.
package main

import (
	"os"

	"github.com/syssam/relmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
