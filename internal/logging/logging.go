// Package logging configures the engine's structured loggers. It mirrors
// the three named component loggers (engine, api, trades) the system was
// distilled from, rebuilt on zerolog instead of per-component log files.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"repello/internal/models"
)

// Loggers holds the three component sub-loggers used across the service.
type Loggers struct {
	Engine zerolog.Logger
	API    zerolog.Logger
	Trades zerolog.Logger
}

// New builds the component loggers writing to w at level. Pass os.Stdout
// and zerolog.InfoLevel for production defaults; tests typically pass a
// bytes.Buffer and zerolog.DebugLevel.
func New(w io.Writer, level zerolog.Level) Loggers {
	base := zerolog.New(w).With().Timestamp().Logger().Level(level)
	return Loggers{
		Engine: base.With().Str("component", "engine").Logger(),
		API:    base.With().Str("component", "api").Logger(),
		Trades: base.With().Str("component", "trades").Logger(),
	}
}

// NewConsole builds loggers writing human-readable output to stderr, for
// local development (cmd/server defaults to this unless -json is set).
func NewConsole(level zerolog.Level) Loggers {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return New(console, level)
}

// LogOrder logs an order lifecycle event (submitted, rested, filled,
// cancelled, rejected) the way the original engine logged order actions.
func LogOrder(log zerolog.Logger, order *models.Order, action string) {
	log.Info().
		Str("action", action).
		Str("order_id", order.ID).
		Str("symbol", order.Symbol).
		Str("type", order.Type.String()).
		Str("side", order.Side.String()).
		Str("quantity", order.Quantity.String()).
		Str("status", order.Status.String()).
		Msg("order")
}

// LogTrade logs a trade execution.
func LogTrade(log zerolog.Logger, trade *models.Trade) {
	log.Info().
		Str("trade_id", trade.TradeID).
		Str("symbol", trade.Symbol).
		Str("price", trade.Price.String()).
		Str("quantity", trade.Quantity.String()).
		Str("maker_order_id", trade.MakerOrderID).
		Str("taker_order_id", trade.TakerOrderID).
		Str("aggressor_side", trade.AggressorSide.String()).
		Msg("trade")
}

// LogAPIRequest logs an inbound HTTP request.
func LogAPIRequest(log zerolog.Logger, method, endpoint string, statusCode int) {
	log.Info().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", statusCode).
		Msg("request")
}
