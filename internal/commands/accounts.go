package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerimport/internal/accounts"
	"github.com/cleared-dev/ledgerimport/internal/model"
	"github.com/cleared-dev/ledgerimport/internal/store"
)

func newAccountsCommand(g *globals) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Ledger account operations",
	}
	accountsCmd.AddCommand(newAccountsListCommand(g))
	accountsCmd.AddCommand(newAccountsEnsureSuspenseCommand(g))
	return accountsCmd
}

func newAccountsListCommand(g *globals) *cobra.Command {
	var db string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List postable accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.database(db)
			if err != nil {
				return err
			}
			svc, err := loadAccounts(cmd.Context(), path)
			if err != nil {
				return err
			}
			list := svc.Postable()
			if all {
				list = svc.All()
			}
			return accounts.WriteAccounts(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "Frappe Books database file")
	cmd.Flags().BoolVar(&all, "all", false, "include group accounts")

	return cmd
}

func newAccountsEnsureSuspenseCommand(g *globals) *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "ensure-suspense",
		Short: "Create the Suspense Clearing account if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.database(db)
			if err != nil {
				return err
			}
			return runEnsureSuspense(cmd, g, path)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "Frappe Books database file")

	return cmd
}

func runEnsureSuspense(cmd *cobra.Command, g *globals, path string) error {
	ctx := cmd.Context()
	st, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()

	schema, err := st.Schema(ctx)
	if err != nil {
		return err
	}
	svc, err := accounts.Load(ctx, st, schema)
	if err != nil {
		return err
	}

	created, err := svc.EnsureSuspense(ctx, st, schema, g.cfg.User, time.Now())
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created account %q\n", model.SuspenseClearing)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Account %q already exists\n", model.SuspenseClearing)
	}
	return nil
}

// loadAccounts opens the ledger just long enough to read its accounts.
func loadAccounts(ctx context.Context, path string) (*accounts.Service, error) {
	st, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	schema, err := st.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return accounts.Load(ctx, st, schema)
}
