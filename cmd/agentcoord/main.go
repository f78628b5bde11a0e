// Command agentcoord selects, runs and coordinates influencer marketing
// advisor agents from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(wireDeps{}).Execute(); err != nil {
		os.Exit(1)
	}
}
