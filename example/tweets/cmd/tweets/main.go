// Command tweets is the command line front end of the tweets sample application.
//
//	tweets seed --count 20
//	tweets list --author anna
//	tweets watch
//	tweets put --author anna "Hello #tablestore"
//	tweets delete <id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
