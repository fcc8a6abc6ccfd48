// Command heddle-headless is the line-delimited JSON IPC worker (§6): it
// reads requests from stdin, drives the agent loop against a configured
// provider, and writes events/results to stdout. One process per session.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xonecas/heddle/internal/debuglog"
	"github.com/xonecas/heddle/internal/headless"
)

func main() {
	os.Exit(run())
}

func run() int {
	ownVersion, err := protocolVersion()
	if err != nil {
		fmt.Fprintf(os.Stderr, "heddle-headless: %v\n", err)
		return 1
	}

	worker := headless.NewWorker(headless.Config{
		Stdin:              os.Stdin,
		Stdout:             os.Stdout,
		OwnProtocolVersion: ownVersion,
		Debug:              debuglog.Default,
	})
	defer debuglog.Default.Close()

	return worker.Run()
}

// protocolVersion locates PROTOCOL_VERSION next to the executable, falling
// back to the current working directory for `go run`/dev invocations.
func protocolVersion() (string, error) {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), "PROTOCOL_VERSION")
		if v, err := headless.OwnProtocolVersion(p); err == nil {
			return v, nil
		}
	}
	return headless.OwnProtocolVersion("PROTOCOL_VERSION")
}
