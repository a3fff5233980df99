//go:build tools

package tools

// Pins the goose CLI for running migrations by hand against
// internal/adapters/postgres/migrations.

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)
