package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.relay/config.json)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	if err := app.Startup(ctx, *configPath); err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	<-ctx.Done()
	log.Println("[app] shutting down")
	app.Shutdown()
}
