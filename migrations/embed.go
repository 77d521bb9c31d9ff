// Package migrations embeds the goose SQL migrations for the client-side
// note store (client/) and the reference note service (server/).
package migrations

import "embed"

//go:embed client/*.sql server/*.sql
var FS embed.FS

// Directories inside FS, one per schema.
const (
	ClientDir = "client"
	ServerDir = "server"
)
