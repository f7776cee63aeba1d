// logtriage - Access Log Triage Tool
//
// logtriage reads a web access log twice, counting requests per client IP and
// then tagging every line with the problems it shows, and reports bots,
// high-volume clients and problematic requests.
package main

import (
	"os"

	"github.com/ccollicutt/logtriage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
