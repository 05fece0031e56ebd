// Command nullg resolves, catalogs and checks NullG records offline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/nullg/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		// Commands print their own structured errors; this line is for logs.
		fmt.Fprintln(os.Stderr, "nullg:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
