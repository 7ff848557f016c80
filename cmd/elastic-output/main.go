package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certtools/intelmq-elastic-output/pkg/output"
	"github.com/certtools/intelmq-elastic-output/pkg/output/log"
)

const botName = "intelmq-elastic-output"

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	bot, err := output.NewStandaloneBot(ctx, botName)
	fatalIfErr(err)

	// Prometheus endpoint, enabled by setting metrics.address
	if addr := output.GetMetricsAddress(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		go func() {
			log.Infof("serving metrics on %s/metrics", addr)

			err := http.ListenAndServe(addr, mux)
			if err != nil {
				log.Warnf("metrics server stopped: %v", err)
			}
		}()
	}

	defer bot.Shutdown(ctx)
	err = bot.Run(ctx)
	fatalIfErr(err)
}

func fatalIfErr(err error) {
	if err != nil {
		log.Fatalf(err)
	}
}
