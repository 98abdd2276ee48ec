package admin

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/credentials"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
)

// Opener builds an Admin for cfg. The returned func releases its resources.
type Opener func(ctx context.Context, cfg *config.Config) (*Admin, func() error, error)

// OpenStorage is the Opener used by the accountctl binary.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Admin, func() error, error) {
	if cfg.Storage == config.StorageMemory {
		return nil, nil, errors.New("memory storage is private to the server process")
	}

	st, err := server.OpenStorage(ctx, cfg, logging.Nop())
	if err != nil {
		return nil, nil, err
	}

	var unit UnitOfWork
	if cfg.Storage == config.StoragePostgres {
		unit = PostgresUnitOfWork(st.DB, repomanager.NewPostgresRepositoryManager())
	}
	return New(st.Accounts, st.Sessions, credentials.NewBcryptHasher(0), unit), st.Close, nil
}

// NewRootCommand builds the accountctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	var (
		configPath string
		dsn        string
		storage    string
		redisAddr  string

		adm     *Admin
		closeFn func() error
	)

	root := &cobra.Command{
		Use:           "accountctl",
		Short:         "Administer authcore accounts and sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			cfg.LoadDefaults()
			if configPath != "" {
				if err := cfg.ApplyFile(configPath); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("dsn") {
				cfg.DatabaseDSN = dsn
			}
			if flags.Changed("storage") {
				cfg.Storage = storage
			}
			if flags.Changed("redis") {
				cfg.RedisAddr = redisAddr
			}

			var err error
			adm, closeFn, err = open(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeFn != nil {
				return closeFn()
			}
			return nil
		},
	}

	var defaults config.Config
	defaults.LoadDefaults()

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "server config file (JSON or YAML)")
	pf.StringVar(&dsn, "dsn", defaults.DatabaseDSN, "PostgreSQL DSN")
	pf.StringVar(&storage, "storage", defaults.Storage, "session storage (postgres, redis)")
	pf.StringVar(&redisAddr, "redis", defaults.RedisAddr, "Redis address")

	admin := func() *Admin { return adm }
	root.AddCommand(accountCommand(admin), sessionCommand(admin))
	return root
}

func accountCommand(admin func() *Admin) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage accounts"}

	var email, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account, prompting for its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			acc, err := admin().CreateAccount(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account %s (%s)\n", acc.ID, acc.Email)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "account email")
	create.Flags().StringVar(&name, "name", "", "display name")
	_ = create.MarkFlagRequired("email")

	var deleteEmail string
	del := &cobra.Command{
		Use:   "delete",
		Short: "Revoke all sessions of an account and delete it",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := admin().DeleteAccount(cmd.Context(), deleteEmail)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s, revoked %d session(s)\n", deleteEmail, n)
			return nil
		},
	}
	del.Flags().StringVar(&deleteEmail, "email", "", "account email")
	_ = del.MarkFlagRequired("email")

	cmd.AddCommand(create, del)
	return cmd
}

func sessionCommand(admin func() *Admin) *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Inspect and revoke sessions"}

	var email string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the valid sessions of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := admin().ListSessions(cmd.Context(), email)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tUSER AGENT")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.UserAgent)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&email, "email", "", "account email")
	_ = list.MarkFlagRequired("email")

	revoke := &cobra.Command{
		Use:   "revoke SESSION_ID",
		Short: "Invalidate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := admin().RevokeSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, revoke)
	return cmd
}
