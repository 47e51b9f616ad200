package main

import (
	"github.com/OFFIS-RIT/stockrag/internal/server"
	"github.com/OFFIS-RIT/stockrag/internal/setup"
	"github.com/OFFIS-RIT/stockrag/internal/util"
)

func main() {
	util.LoadEnv()
	setup.Logger("server")
	server.Init()
}
