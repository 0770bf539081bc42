package main

import (
	"github.com/xi784/ha-blnet/internal/blnetctl"
	_ "github.com/xi784/ha-blnet/internal/logsetup"
)

func main() {
	blnetctl.Main()
}
