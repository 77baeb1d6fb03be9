// migrate applies the console's Postgres migrations (audit_logs, console_storage) from embedded SQL.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"maintenance-manager/console/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 0, "Number of migrations to apply; 0 applies all")
	flag.Parse()

	// Only DATABASE_URL is needed here, so the full console config (which requires API_BASE_URL) is not loaded.
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	dsn := v.GetString("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env or set DATABASE_URL")
		os.Exit(1)
	}

	if err := migrate.Run(dsn, *direction, *steps); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
