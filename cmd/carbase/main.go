package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/carbase/carbase/internal/clock"
	"github.com/carbase/carbase/internal/config"
	"github.com/carbase/carbase/internal/migration"
	"github.com/carbase/carbase/internal/observability"
	"github.com/carbase/carbase/internal/server"
	"github.com/carbase/carbase/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		server.Module,
	)

	app.Run()
}

func newSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
