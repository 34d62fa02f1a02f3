package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/internal"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting so that every defer executes before the process exits.
func run() error {
	// 1. Port from the command line, everything else from the environment
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: %s <port>", os.Args[0])
	}
	port, err := strconv.Atoi(os.Args[1])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", os.Args[1])
	}

	// 2. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 3. Setup Supervision & Engine
	sup := workers.NewSupervisor(log, config.RestartInterval)
	engine := runtime.NewEngine(log, sup, runtime.Options{
		Addr:            fmt.Sprintf(":%d", port),
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
		CensoredWords:   config.CensoredWords,
		CensoredChar:    censoredChar,
		MonitorInterval: config.MonitorInterval,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("engine failed to start: %w", err)
	}

	// 6. Optional debug endpoint
	if config.DebugPort != nil {
		internal.StartDebugServer(*config.DebugPort, "/stats", engine.Stats)
		log.Info("Debug endpoint started", "port", *config.DebugPort)
	}

	// 7. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// 8. Final Cleanup
	engine.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
