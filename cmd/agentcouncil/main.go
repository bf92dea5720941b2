// Command agentcouncil answers a query with a council of agents and streams
// their progress to the terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(&rootOptions{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}).Execute(); err != nil {
		os.Exit(1)
	}
}
