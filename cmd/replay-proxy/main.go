// Command replay-proxy runs a record/replay forward HTTP proxy and inspects
// recorded fixtures. Point a client's HTTP proxy at "replay-proxy serve" and
// requests are answered from fixtures, or fetched and recorded when fallback
// is enabled.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
