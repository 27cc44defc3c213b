package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"feedswitch/pkg/bus"
	"feedswitch/services/agent"
)

func main() {
	if err := run(); err != nil {
		log.New(os.Stderr, "switch-agent: ", log.LstdFlags).Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", agent.DefaultConfigPath, "path to the agent configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := agent.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(os.Stdout, "switch-agent: ", log.LstdFlags)

	cache, err := agent.OpenCache(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	msgBus, err := bus.New(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	defer msgBus.Close()

	gateway, err := agent.NewBusGateway(msgBus)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	switcher, err := agent.NewSwitcher(gateway, cfg.Site, cfg.RuleID, logger)
	if err != nil {
		return fmt.Errorf("init switcher: %w", err)
	}

	manager := agent.NewTokenManager(agent.NewClient(cfg.APIBase), cache, logger)

	dispatcher, err := agent.NewDispatcher(manager, switcher, logger)
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}

	closer, err := dispatcher.Bind(ctx, msgBus)
	if err != nil {
		return fmt.Errorf("bind dispatcher: %w", err)
	}
	defer closer.Close()

	logger.Printf("INFO handling actions on %s", agent.ActionsSubject)

	<-ctx.Done()
	return nil
}
