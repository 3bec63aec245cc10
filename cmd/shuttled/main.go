// Command shuttled runs the bridge daemon without the CLI front end. It
// exists for service managers: a systemd unit can point straight at this
// binary instead of shelling out to `shuttle daemon`.
package main

import (
	"context"
	"log"

	"shuttle/internal/config"
	"shuttle/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	opts, err := prepare(cfg)
	if err != nil {
		log.Fatalf("prepare runtime: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}
