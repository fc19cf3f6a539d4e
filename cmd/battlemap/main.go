package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"
)

// set at build time via ldflags
var (
	version   = "0.0.1"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := a.close(closeCtx); cerr != nil {
		fmt.Fprintln(os.Stderr, "Shutdown incomplete:", cerr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
