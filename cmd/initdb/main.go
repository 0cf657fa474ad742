// Command initdb opens the database and applies pending migrations, then
// exits. Useful for provisioning a volume before the server starts.
package main

import (
	"homebudget/internal/cli"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	logger.Info("Database ready", "path", cfg.SQLiteDBPath)
}
