package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/parentguard/internal/api"
	"github.com/eliteGoblin/focusd/parentguard/internal/infra"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
)

const requestTimeout = 30 * time.Second

var (
	jsonOutput  bool
	reportLimit int
	reportProfile   string
)

func newClient() *api.Client {
	return api.NewClient(cfg.API.Addr, v.GetString("pin"))
}

// withClient runs fn with a bounded context and prints its message.
func withClient(fn func(ctx context.Context, c *api.Client) (string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()
		msg, err := fn(ctx, newClient())
		if err != nil {
			return explain(err)
		}
		if msg != "" {
			fmt.Println(msg)
		}
		return nil
	}
}

// explain adds a next step to the common client failures.
func explain(err error) error {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrDaemonUnreachable):
		return fmt.Errorf("%w\nStart it with 'sudo parentguard run --detach'", err)
	case errors.As(err, &apiErr) && apiErr.StatusCode == 401:
		return fmt.Errorf("%s\nPass the admin PIN with --pin or PARENTGUARD_PIN", apiErr.Message)
	}
	return err
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status and the active rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		st, err := newClient().Status(ctx)
		if err != nil {
			if errors.Is(err, api.ErrDaemonUnreachable) {
				fmt.Println(errStyle.Render("Status: NOT RUNNING"))
				fmt.Println("\nRun 'sudo parentguard run --detach' to enable protection.")
				return nil
			}
			return explain(err)
		}
		if jsonOutput {
			return printJSON(st)
		}

		info, _ := infra.NewFileRegistry(cfg.DataDir).Get()
		fmt.Println(renderStatus(st, info, time.Now()))
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the active rule set",
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply <file.yaml>",
	Short: "Replace the active rules with a rule file (resets screen time)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := policy.LoadRuleFile(args[0])
		if err != nil {
			return err
		}
		// Catch unknown presets before anything reaches the agent.
		if _, err := spec.ToRuleSet(policy.NewRegistry()); err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) (string, error) {
			return c.UpdateRules(ctx, spec)
		})(cmd, args)
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active rules as a rule file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()
		st, err := newClient().Status(ctx)
		if err != nil {
			return explain(err)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(policy.SpecFromRuleSet(st.State.Rules))
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Pause or resume enforcement",
}

var monitorStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Resume enforcement",
	RunE:  withClient(func(ctx context.Context, c *api.Client) (string, error) { return c.StartMonitoring(ctx) }),
}

var monitorStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Pause enforcement, restore the network and remove the block list",
	RunE:  withClient(func(ctx context.Context, c *api.Client) (string, error) { return c.StopMonitoring(ctx) }),
}

var screenTimeCmd = &cobra.Command{
	Use:   "screen-time",
	Short: "Show budget minutes used today",
	RunE: withClient(func(ctx context.Context, c *api.Client) (string, error) {
		st, err := c.ScreenTime(ctx)
		if err != nil {
			return "", err
		}
		if jsonOutput {
			return "", printJSON(st)
		}
		return formatBudget(st.MinutesUsed, st.DailyLimitMinutes), nil
	}),
}

var blockCmd = &cobra.Command{
	Use:   "block <domain>",
	Short: "Block a domain now and keep it in the active rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) (string, error) {
			return c.BlockSite(ctx, args[0])
		})(cmd, args)
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <domain>",
	Short: "Unblock a domain and drop it from the active rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) (string, error) {
			return c.UnblockSite(ctx, args[0])
		})(cmd, args)
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <name>",
	Short: "Terminate processes whose name contains <name>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) (string, error) {
			return c.KillProcess(ctx, args[0])
		})(cmd, args)
	},
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running process names as the agent sees them",
	RunE: withClient(func(ctx context.Context, c *api.Client) (string, error) {
		names, err := c.Processes(ctx)
		if err != nil {
			return "", err
		}
		if jsonOutput {
			return "", printJSON(names)
		}
		return strings.Join(names, "\n"), nil
	}),
}

var netCmd = &cobra.Command{
	Use:   "net",
	Short: "Cut or restore the network manually",
}

var netCutCmd = &cobra.Command{
	Use:   "cut",
	Short: "Disable the network interfaces now",
	RunE:  withClient(func(ctx context.Context, c *api.Client) (string, error) { return c.CutInternet(ctx) }),
}

var netRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Re-enable the network interfaces now",
	RunE:  withClient(func(ctx context.Context, c *api.Client) (string, error) { return c.RestoreInternet(ctx) }),
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the activity journal with a daily chart",
	RunE: withClient(func(ctx context.Context, c *api.Client) (string, error) {
		events, err := c.Activity(ctx, reportProfile, reportLimit)
		if err != nil {
			return "", err
		}
		if jsonOutput {
			return "", printJSON(events)
		}
		return renderReport(events, time.Now(), 10), nil
	}),
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the categories a rule file can name under presets:",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Println(titleStyle.Render("Presets"))
		for _, p := range policy.NewRegistry().GetAll() {
			fmt.Printf("\n[%s] %s\n", p.ID(), p.Name())
			if apps := p.ProcessPatterns(); len(apps) > 0 {
				fmt.Println(row("  Apps", strings.Join(apps, ", ")))
			}
			if sites := p.Sites(); len(sites) > 0 {
				fmt.Println(row("  Sites", strings.Join(sites, ", ")))
			}
		}
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the admin PIN (run on the device, as root)",
}

var pinSetCmd = &cobra.Command{
	Use:   "set <new-pin>",
	Short: "Set or change the admin PIN; pass the current one with --pin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPINGuard(func(g *api.PINGuard) error {
			if err := g.Set(args[0]); err != nil {
				return err
			}
			fmt.Println("admin PIN set")
			return nil
		})
	},
}

var pinClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the admin PIN; pass the current one with --pin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPINGuard(func(g *api.PINGuard) error {
			if err := g.Clear(); err != nil {
				return err
			}
			fmt.Println("admin PIN removed")
			return nil
		})
	},
}

// withPINGuard opens the local secret store and checks the current PIN.
func withPINGuard(fn func(*api.PINGuard) error) error {
	store, err := infra.OpenEncryptedStore(cfg.DataDir, infra.NewFileKeyProvider(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("failed to open secret store (are you root?): %w", err)
	}
	defer store.Close()

	guard := api.NewPINGuard(store)
	if err := guard.Verify(v.GetString("pin")); err != nil {
		return explain(err)
	}
	return fn(guard)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	// Version needs no config.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if jsonOutput {
			return printJSON(map[string]string{"version": Version, "commit": Commit, "build_time": BuildTime})
		}
		fmt.Printf("parentguard %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable output where supported")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 200, "number of journal entries to read")
	reportCmd.Flags().StringVar(&reportProfile, "profile", "", "only entries for this profile")

	presetsCmd.PersistentPreRunE = versionCmd.PersistentPreRunE

	rulesCmd.AddCommand(rulesApplyCmd, rulesShowCmd)
	monitorCmd.AddCommand(monitorStartCmd, monitorStopCmd)
	netCmd.AddCommand(netCutCmd, netRestoreCmd)
	pinCmd.AddCommand(pinSetCmd, pinClearCmd)

	rootCmd.AddCommand(
		statusCmd, rulesCmd, monitorCmd, screenTimeCmd,
		blockCmd, unblockCmd, killCmd, psCmd, netCmd,
		reportCmd, presetsCmd, pinCmd, versionCmd,
	)
}
