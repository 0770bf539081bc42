package main

import (
	"github.com/xi784/ha-blnet/internal/bridge"
	"github.com/xi784/ha-blnet/internal/cli"
	_ "github.com/xi784/ha-blnet/internal/logsetup"
)

func main() {
	cli.StandardMain(
		func() cli.Configurable { return bridge.NewConfig() },
		bridge.NewHandler(),
	)
}
