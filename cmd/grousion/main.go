// Package main starts the deliberation engine and handles termination.
//
// The process hosts the JSON API and the websocket change-signal stream over
// a single sqlite-backed session store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	grousioncmd "github.com/grousion/grousion/internal/cmd/grousion"
)

func main() {
	cfg, err := grousioncmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[GROUSION] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := grousioncmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
