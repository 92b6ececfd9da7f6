package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/migration"
	"github.com/smallbiznis/gymcore/internal/observability"
	"github.com/smallbiznis/gymcore/internal/scheduler"
	"github.com/smallbiznis/gymcore/internal/seed"
	"github.com/smallbiznis/gymcore/internal/server"
	"github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and the bootstrap platform admin must exist before the
		// HTTP server starts.
		seed.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
