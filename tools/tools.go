//go:build tools

package tools

// This file tracks tool dependencies for reproducible builds.
// Run `go mod tidy` after adding/removing tools here.
//
// The goose CLI applies the same migrations the services embed:
//
//	go run github.com/pressly/goose/v3/cmd/goose -dir internal/adapters/postgres/migrations postgres "$DATABASE_URL" status

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)
