package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"repello/internal/api"
	"repello/internal/logging"
	"repello/internal/matching"
	"repello/internal/metrics"
	"repello/internal/models"
)

func main() {
	addr := flag.String("addr", envOr("REPELLO_ADDR", ":8080"), "listen address")
	jsonLogs := flag.Bool("json", os.Getenv("REPELLO_JSON_LOGS") == "1", "emit structured JSON logs instead of a console writer")
	flag.Parse()

	level := zerolog.InfoLevel
	var logs logging.Loggers
	if *jsonLogs {
		logs = logging.New(os.Stdout, level)
	} else {
		logs = logging.NewConsole(level)
	}

	m := metrics.NewMetrics()
	engine := matching.NewEngine(m, logs.Engine)
	engine.RegisterTradeListener(func(trade *models.Trade) {
		logging.LogTrade(logs.Trades, trade)
	})

	server := api.NewServer(*addr, engine, m, logs.API)
	logs.Engine.Info().Str("addr", *addr).Msg("matching engine starting")
	if err := server.Run(); err != nil {
		logs.Engine.Fatal().Err(err).Msg("server exited")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
