package main

import (
	"context"
	"parkdata-backend/cmd/parkdata/commands"
	"parkdata-backend/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	telemetry.SetupFromEnv(context.Background(), "parkdata")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
