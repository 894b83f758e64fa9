package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/clock"
	"github.com/seawell/laguna/internal/config"
	"github.com/seawell/laguna/internal/migration"
	"github.com/seawell/laguna/internal/observability"
	"github.com/seawell/laguna/internal/server"
	"github.com/seawell/laguna/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
