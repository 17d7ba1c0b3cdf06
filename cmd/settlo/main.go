package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/partnerpay/settlo/internal/config"
	"github.com/partnerpay/settlo/internal/migration"
	"github.com/partnerpay/settlo/internal/observability"
	"github.com/partnerpay/settlo/internal/server"
	"github.com/partnerpay/settlo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
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
