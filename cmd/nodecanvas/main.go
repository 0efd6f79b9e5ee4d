// Command nodecanvas hosts an interactive node-graph surface over HTTP or in
// the terminal.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
