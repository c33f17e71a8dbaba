// SPDX-License-Identifier:Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onewifi-go/easymesh/internal/config"
	"github.com/onewifi-go/easymesh/internal/logging"
	"github.com/onewifi-go/easymesh/internal/version"
)

const defaultConfigPath = "/etc/easymesh/easymesh.yaml"

func main() {
	var (
		configPath = flag.String("config", envOr("EM_CONFIG", defaultConfigPath), "path to the agent configuration file")
		host       = flag.String("host", os.Getenv("EM_HOST"), "HTTP host address for metrics")
		port       = flag.Int("port", envInt("EM_PORT", 7473), "HTTP listening port for metrics")
		logLevel   = flag.String("log-level", envOr("EM_LOG_LEVEL", "info"), fmt.Sprintf("log level. must be one of: [%s]", logging.Levels.String()))
	)
	flag.Parse()

	logger, err := logging.Init(*logLevel)
	if err != nil {
		fmt.Printf("failed to initialize logging: %s\n", err)
		os.Exit(1)
	}

	build := version.Current()
	level.Info(logger).Log(append(build.Keyvals(), "msg", "EasyMesh agent starting "+build.String())...)

	cfg, err := config.Load(*configPath, config.RequireRadios)
	if err != nil {
		level.Error(logger).Log("op", "startup", "error", err, "msg", "failed to load configuration")
		os.Exit(1)
	}

	model, err := loadDataModel(cfg)
	if err != nil {
		level.Error(logger).Log("op", "startup", "error", err, "msg", "failed to load data model")
		os.Exit(1)
	}

	stopCh := make(chan struct{})
	go func() {
		c1 := make(chan os.Signal, 1)
		signal.Notify(c1, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
		<-c1
		level.Info(logger).Log("op", "shutdown", "msg", "starting shutdown")
		signal.Stop(c1)
		close(stopCh)
	}()
	defer level.Info(logger).Log("op", "shutdown", "msg", "done")

	server := serveMetrics(logger, *host, *port)

	a, err := newAgent(logger, cfg, model)
	if err != nil {
		level.Error(logger).Log("op", "startup", "error", err, "msg", "failed to create engines")
		os.Exit(1)
	}
	if err := a.start(); err != nil {
		level.Error(logger).Log("op", "startup", "error", err, "msg", "failed to start engines")
		a.stop()
		os.Exit(1)
	}

	failed := a.wait(stopCh)
	a.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		level.Error(logger).Log("op", "shutdown", "error", err, "msg", "metrics endpoint shutdown")
	}
	if failed {
		os.Exit(1)
	}
}

// serveMetrics exposes the prometheus registry at /metrics.
func serveMetrics(l log.Logger, host string, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		level.Info(l).Log("op", "startup", "msg", fmt.Sprintf("starting metrics endpoint at %s", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(l).Log("op", "startup", "error", err, "msg", "listening for metrics requests")
			os.Exit(1)
		}
	}()

	return server
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
