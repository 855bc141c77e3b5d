// Command planctl plans or validates a seating request offline, without the
// HTTP server or a database.
//
//	planctl plan -i office.json -c planner.yaml -o plan.json
//	planctl validate -i office.json
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		log.Error().Err(err).Msg("planctl failed")
		os.Exit(1)
	}
}
