// Package main contains the migplan command line tool. It uses the cobra
// package for the command tree and viper for configuration.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/afero"

	_ "migplan/internal/dialect/mysql" // registers the mysql dialect
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{fs: afero.NewOsFs(), out: os.Stdout, now: time.Now}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
