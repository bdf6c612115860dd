// Command udp-flood sends UDP datagrams of random content to random
// destinations, as fast as it can, from one or more workers.
package main

import (
	"context"
	"os"
)

var version = `2.0`

func main() {
	if err := newRootCommand(run).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
