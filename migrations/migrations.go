// Package migrations embeds the relational schema for the marketplace
// query service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
