package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every component that logs about games and settlements.
const (
	FieldGameID       = "game_id"
	FieldSettlementID = "settlement_id"
	FieldUserID       = "user_id"
	FieldActor        = "actor"
	FieldRequestID    = "request_id"
)

const defaultService = "pokersettle"

// Config holds logger configuration.
type Config struct {
	Level   string    // debug, info, warn, error
	Format  string    // json, console
	Service string    // defaults to pokersettle
	Output  io.Writer // defaults to stdout
}

// New creates a new zerolog logger based on config.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.Output != nil,
		}
	}

	service := cfg.Service
	if service == "" {
		service = defaultService
	}

	return zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// ForGame returns a child logger tagged with the game id.
func ForGame(l zerolog.Logger, gameID string) zerolog.Logger {
	return l.With().Str(FieldGameID, gameID).Logger()
}

// ForSettlement returns a child logger tagged with the settlement and its game.
func ForSettlement(l zerolog.Logger, gameID, settlementID string) zerolog.Logger {
	return l.With().Str(FieldGameID, gameID).Str(FieldSettlementID, settlementID).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
