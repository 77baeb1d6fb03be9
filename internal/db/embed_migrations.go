package db

import "embed"

// MigrationFS holds the audit_logs and console_storage migrations applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
