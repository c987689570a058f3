// Package main is the entry point for the MCP gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/compresr/mcp-gateway/internal/config"
)

// ANSI color codes, kept from the teacher's banner styling.
const (
	compresrGreen = "\033[38;2;23;128;68m" // #178044
	bold          = "\033[1m"
	reset         = "\033[0m"
)

// ASCII banner for startup
const banner = `
  ███╗   ███╗  ██████╗██████╗      ██████╗  █████╗ ████████╗███████╗██╗    ██╗ █████╗ ██╗   ██╗
  ████╗ ████║ ██╔════╝██╔══██╗    ██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝██║    ██║██╔══██╗╚██╗ ██╔╝
  ██╔████╔██║ ██║     ██████╔╝    ██║  ███╗███████║   ██║   █████╗  ██║ █╗ ██║███████║ ╚████╔╝
  ██║╚██╔╝██║ ██║     ██╔═══╝     ██║   ██║██╔══██║   ██║   ██╔══╝  ██║███╗██║██╔══██║  ╚██╔╝
  ██║ ╚═╝ ██║ ╚██████╗██║         ╚██████╔╝██║  ██║   ██║   ███████╗╚███╔███╔╝██║  ██║   ██║
  ╚═╝     ╚═╝  ╚═════╝╚═╝          ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝
`

func printBanner() {
	fmt.Print(compresrGreen + bold + banner + reset + "\n")
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve", "start":
			runGatewayServer(os.Args[2:])
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}
	runGatewayServer(os.Args[1:])
}

// runGatewayServer loads the configuration, wires every collaborator
// via newApp, and serves until a shutdown signal arrives.
func runGatewayServer(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to gateway config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	noBanner := fs.Bool("no-banner", false, "suppress startup banner")
	_ = fs.Parse(args)

	if !*noBanner {
		printBanner()
	}

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "mcp-gateway: -config is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-gateway: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-gateway: failed to initialize: %v\n", err)
		os.Exit(1)
	}

	log.Info().Str("config", *configPath).Str("bind_addr", cfg.Server.BindAddr).Msg("mcp gateway starting")

	app.registry.WarmStart(context.Background(), cfg.Meta.WarmStart)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- app.gateway.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil && err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("gateway server error")
		}
	case <-sigChan:
		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := app.gateway.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("gateway http shutdown error")
		}
		<-serveErrCh

		app.close(ctx)
	}

	log.Info().Msg("mcp gateway stopped")
}

func printHelp() {
	printBanner()
	fmt.Println("MCP Gateway - aggregating proxy for Model Context Protocol tool servers")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mcp-gateway [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve        Start the gateway server (default)")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config FILE     Gateway config file (required)")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("  -no-banner       Suppress startup banner")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mcp-gateway serve -config gateway.yaml")
}
