package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/taskflow/internal/auth"
	"github.com/hpungsan/taskflow/internal/chat"
	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/fallback"
	"github.com/hpungsan/taskflow/internal/gateway"
	"github.com/hpungsan/taskflow/internal/history"
	"github.com/hpungsan/taskflow/internal/logging"
	"github.com/hpungsan/taskflow/internal/mcp"
	"github.com/hpungsan/taskflow/internal/tools"
	"github.com/hpungsan/taskflow/internal/web"
)

// serveCmd runs the HTTP API.
func serveCmd(db *sql.DB, cfg *config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Interface to listen on (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}

			tokens, err := newTokenManager(cfg)
			if err != nil {
				return outputError(err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			orch, err := newOrchestrator(c.Context, db, cfg, log, reg)
			if err != nil {
				return outputError(err)
			}

			srv := web.NewServer(web.Options{
				DB:       db,
				Config:   cfg,
				Auth:     auth.NewService(db, tokens),
				Chat:     orch,
				Registry: reg,
				Logger:   logging.Component(log, "http"),
				Version:  Version,
			})
			return web.Run(srv, log)
		},
	}
}

// mcpCmd serves the task tools over MCP stdio for one user.
func mcpCmd(db *sql.DB, cfg *config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the task tools over MCP stdio",
		Flags: []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			exec, err := tools.NewExecutor(db, cfg)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			// stdout carries the protocol; logs stay on stderr.
			return mcp.Run(exec, cfg, c.String("user"), Version, logging.Component(log, "mcp"))
		},
	}
}

// newOrchestrator wires the chat loop. Without GEMINI_API_KEY every message
// takes the fallback path.
func newOrchestrator(ctx context.Context, db *sql.DB, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*chat.Orchestrator, error) {
	exec, err := tools.NewExecutor(db, cfg)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var metrics *chat.Metrics
	if reg != nil {
		metrics = chat.NewMetrics(reg)
	}

	return chat.New(chat.Options{
		History:  history.New(db),
		Executor: exec,
		Gateway:  newGateway(ctx, cfg, log),
		Fallback: fallback.New(exec),
		Metrics:  metrics,
		Logger:   logging.Component(log, "chat"),
	}), nil
}

func newGateway(ctx context.Context, cfg *config.Config, log zerolog.Logger) gateway.Gateway {
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, chat will use the command parser only")
		return gateway.Disabled{}
	}
	g, err := gateway.NewGemini(ctx, gateway.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.ModelName,
		Timeout: time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
		Logger:  logging.Component(log, "gateway"),
	})
	if err != nil {
		log.Error().Err(err).Msg("gemini gateway unavailable, chat will use the command parser only")
		return gateway.Disabled{}
	}
	return g
}

func newTokenManager(cfg *config.Config) (*auth.TokenManager, error) {
	tokens, err := auth.NewTokenManager(cfg.SecretKey, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return tokens, nil
}
