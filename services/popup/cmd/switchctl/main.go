package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"feedswitch/pkg/bus"
	"feedswitch/services/agent"
	"feedswitch/services/popup"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "switchctl",
		Short:         "Manage saved accounts and switch the active feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", agent.DefaultConfigPath, "path to the agent configuration file")

	cmd.AddCommand(newAccountsCommand(&configPath))
	cmd.AddCommand(newCaptureCommand(&configPath))
	cmd.AddCommand(newSwitchCommand(&configPath))
	cmd.AddCommand(newMyFeedCommand(&configPath))
	cmd.AddCommand(newStatusCommand(&configPath))
	return cmd
}

// runtime bundles the dependencies each subcommand needs.
type runtime struct {
	controller *popup.Controller
	close      func()
}

func setup(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := agent.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr, "switchctl: ", 0)

	cache, err := agent.OpenCache(cfg.CachePath)
	if err != nil {
		return nil, err
	}

	remote := agent.NewClient(cfg.APIBase)

	manager := agent.NewTokenManager(remote, cache, logger)
	deviceID, err := manager.DeviceID(ctx)
	if err != nil {
		cache.Close()
		return nil, err
	}

	msgBus, err := bus.New(cfg.NATSURL)
	if err != nil {
		cache.Close()
		return nil, err
	}

	messenger, err := popup.NewBusMessenger(msgBus)
	if err != nil {
		msgBus.Close()
		cache.Close()
		return nil, err
	}

	controller, err := popup.NewController(remote, messenger, deviceID, logger)
	if err != nil {
		msgBus.Close()
		cache.Close()
		return nil, err
	}

	return &runtime{
		controller: controller,
		close: func() {
			msgBus.Close()
			cache.Close()
		},
	}, nil
}

func newAccountsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List and delete saved accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			accounts, err := rt.controller.LoadAccounts(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Printf("%s\t%s\t%s\n", a.UserID, a.Name, a.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <userId>",
		Short: "Delete all tokens of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			return rt.controller.DeleteAccount(cmd.Context(), args[0])
		},
	})

	return cmd
}

func newCaptureCommand(configPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the live session token and save it as an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			token, err := rt.controller.CaptureAndSave(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Printf("saved token %s (%s)\n", token.ID, token.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name for the captured account")
	return cmd
}

func newSwitchCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <userId>",
		Short: "Switch the browser session to an account's newest token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.controller.SwitchFeed(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("feed loaded and UI locked")
			return nil
		},
	}
}

func newMyFeedCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "my-feed",
		Short: "Clear any override and return to your real feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.controller.SwitchToMyFeed(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("your real feed loaded")
			return nil
		},
	}
}

func newStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an override is active",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			token, err := rt.controller.ActiveToken(cmd.Context())
			if err != nil {
				return err
			}
			if token == nil {
				fmt.Println("no override active")
				return nil
			}
			if token.Name != "" {
				fmt.Printf("override active: %s (%s)\n", token.Name, token.ID)
			} else {
				fmt.Println("override active")
			}
			return nil
		},
	}
}
