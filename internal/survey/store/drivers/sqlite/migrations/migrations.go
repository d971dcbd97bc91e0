package migrations

import "embed"

// Migrations holds the golang-migrate *.up.sql / *.down.sql pairs.
//
//go:embed *.sql
var Migrations embed.FS
