// Command docgraph is the CLI front end for the hierarchical document index
// and graph-aware retrieval system: index markdown trees, query them, and
// inspect or export the resulting graph.
//
// Usage:
//
//	docgraph index <path>
//	docgraph query <text>
//	docgraph graph stats
//	docgraph graph export
//	docgraph serve
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/docgraph/cmd/docgraph/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
