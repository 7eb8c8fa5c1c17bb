package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/coursedesk/core"
	logsvc "github.com/trezcool/coursedesk/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stdout, conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := newApp(conf, logger)
	defer cli.close()

	if err := newRootCmd(cli).ExecuteContext(ctx); err != nil {
		if err != errHelp {
			logger.Error("admin", err)
		}
		cli.close()
		os.Exit(1)
	}
}
