// file: main.go
// version: 2.0.0
// guid: 2c90ae30-de1b-4cbd-a893-903bd2056e6b

package main

import (
	"fmt"
	"os"

	"github.com/jdfalk/album-enricher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
