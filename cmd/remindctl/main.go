package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ticovision/reminders/internal/app"
	"github.com/ticovision/reminders/internal/config"
	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/importer"
	"github.com/ticovision/reminders/internal/logging"
	"github.com/ticovision/reminders/internal/money"
	"github.com/ticovision/reminders/internal/tenant"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var tenantID string
	var a *app.App

	root := &cobra.Command{
		Use:           "remindctl",
		Short:         "Evaluate and send fee reminders, aggregate group fees",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return tenant.ErrMissingTenant
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err = app.New(cfg, logging.New(cfg.Logging))
			if err != nil {
				return err
			}
			cmd.SetContext(tenant.WithTenant(cmd.Context(), tenantID))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}
	root.PersistentFlags().StringVar(&tenantID, "tenant", os.Getenv("TENANT_ID"), "tenant id (defaults to $TENANT_ID)")

	root.AddCommand(
		&cobra.Command{
			Use:   "scan",
			Short: "List fees that currently need a reminder",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := a.Reminders.GetRemindersNeedingAction(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(res)
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Send automatic reminders for every match",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				summary, err := a.Reminders.ProcessAutomaticReminders(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(summary)
			},
		},
		newAggregateCmd(&a),
		newImportCmd(&a),
		newRulesCmd(&a),
	)

	return root
}

func newAggregateCmd(a **app.App) *cobra.Command {
	var groupID string
	var year int

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Sum a client group's fees for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := (*a).Groups.GetAggregatedGroupData(cmd.Context(), groupID, year)
			if err != nil {
				return err
			}
			fmt.Printf("group %s, %d (%d clients, %d fees)\n", agg.GroupID, agg.Year, agg.ClientCount, agg.FeeCount)
			fmt.Printf("  base:     ₪%s\n", money.Round(agg.BaseAmount).StringFixed(2))
			fmt.Printf("  discount: ₪%s\n", money.Round(agg.DiscountAmount).StringFixed(2))
			fmt.Printf("  total:    ₪%s (incl. VAT)\n", money.Round(agg.TotalWithVAT).StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "client group id")
	cmd.Flags().IntVar(&year, "year", 0, "fee year")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newImportCmd(a **app.App) *cobra.Command {
	return &cobra.Command{
		Use:       "import {clients|fees} FILE",
		Short:     "Import a CSV export of clients or fee calculations",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{importer.KindClients, importer.KindFees},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			res, err := (*a).Importer.Import(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func newRulesCmd(a **app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reminder rules",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the tenant's reminder rules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rules, err := (*a).Reminders.ListRules(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(rules)
			},
		},
		&cobra.Command{
			Use:   "load FILE",
			Short: "Create rules from a JSON array",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				var rules []domain.ReminderRule
				if err := json.Unmarshal(data, &rules); err != nil {
					return fmt.Errorf("decode %s: %w", args[0], err)
				}
				for _, r := range rules {
					created, warnings, err := (*a).Reminders.CreateRule(cmd.Context(), r)
					if err != nil {
						return fmt.Errorf("rule %q: %w", r.Name, err)
					}
					fmt.Printf("created %s %q\n", created.ID, created.Name)
					for _, w := range warnings {
						fmt.Printf("  warning: %s\n", w)
					}
				}
				return nil
			},
		},
	)
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

