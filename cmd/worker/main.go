package main

import (
	"ads-autopilot/internal/app"
	"ads-autopilot/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	app.Run(cfg)
}
