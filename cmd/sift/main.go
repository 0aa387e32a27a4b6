// sift streams compressed NDJSON comment archives and flags every record
// created inside a date window against a table of keyword categories.
package main

import (
	"os"

	"sift/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
