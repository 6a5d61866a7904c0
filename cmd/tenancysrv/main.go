package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/logtrace"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/server"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile *string
}

func main() {
	slog := log.With().Str("state", "init").Logger()
	opt := parseFlags()

	slog.Info().Str("config_file", *opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(*opt.configFile); err != nil {
		slog.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	logtrace.InitLogger(config.Config().LogLevel)
	if config.Config().ServerPort == "" {
		slog.Error().Msg("server port not defined")
		os.Exit(1)
	}
	if config.Config().Auth.SigningKey == "" {
		slog.Warn().Msg("no signing key configured, all requests are anonymous")
	}

	ctx := slog.WithContext(context.Background())
	if err := db.Init(ctx, config.Config().DB); err != nil {
		slog.Error().Err(err).Msg("unable to connect to database")
		os.Exit(1)
	}
	defer db.ClosePool()

	s, err := server.CreateNewServer()
	if err != nil {
		slog.Error().Err(err).Msg("unable to create server")
		os.Exit(1)
	}
	s.MountHandlers()
	slog.Info().Str("port", config.Config().ServerPort).Msg("tenancy server listening")
	if err := http.ListenAndServe(":"+config.Config().ServerPort, s.Router); err != nil {
		slog.Error().Err(err).Msg("server stopped")
	}
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", common.DefaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
