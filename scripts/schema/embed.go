// Package schema bundles the migration scripts shipped in the Lambda layer.
// The same files are mounted under /opt at runtime; the embedded copy lets
// the CLI and tests run without a layer.
package schema

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

func FS() fs.FS {
	return files
}
