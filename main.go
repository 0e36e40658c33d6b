package main

import (
	"fmt"
	"log/slog"
	"os"

	"library-circulation/library"

	"github.com/spf13/cobra"
)

const appVersion = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		storeKind string
		storePath string
		loanLimit int
	)

	root := &cobra.Command{
		Use:          "library",
		Short:        "Circulation desk for a small library",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, err := openManager(cmd, storeKind, storePath, loanLimit)
			if err != nil {
				return err
			}
			defer mgr.Close()
			mgr.Broadcaster().AddChannel(library.NewConsoleChannel(cmd.OutOrStdout()))
			return runMenu(newMenu(mgr, cmd.InOrStdin(), cmd.OutOrStdout()))
		},
	}
	root.PersistentFlags().StringVar(&storeKind, "store", "", "storage backend (sqlite|json)")
	root.PersistentFlags().StringVar(&storePath, "db", "", "path to the library database or JSON file")
	root.PersistentFlags().IntVar(&loanLimit, "loan-limit", 0, "maximum active loans per patron")

	root.AddCommand(&cobra.Command{
		Use:   "remind",
		Short: "Send overdue reminders to every patron holding overdue items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, cfg, err := openManager(cmd, storeKind, storePath, loanLimit)
			if err != nil {
				return err
			}
			defer mgr.Close()

			mgr.Broadcaster().AddChannel(library.NewConsoleChannel(cmd.OutOrStdout()))
			if cfg.EmailEnabled() {
				sender := library.SMTPSender{Addr: cfg.SMTPAddr, Username: cfg.SMTPUser, Password: cfg.SMTPPassword}
				mgr.Broadcaster().AddChannel(library.NewEmailChannel(cfg.SMTPFrom, sender, cfg.EmailsPerSecond, slog.Default()))
			}
			n := mgr.SendOverdueReminders()
			fmt.Fprintf(cmd.OutOrStdout(), "Reminders sent to %d patron(s).\n", n)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "library %s\n", appVersion)
		},
	})

	return root
}

// resolveConfig loads configuration and applies flag overrides.
func resolveConfig(storeKind, storePath string, loanLimit int) (library.Config, error) {
	cfg, err := library.LoadConfig()
	if err != nil {
		return cfg, err
	}
	if storeKind != "" {
		cfg.SetStoreKind(storeKind)
	}
	if storePath != "" {
		cfg.SetStorePath(storePath)
	}
	if loanLimit > 0 {
		cfg.LoanLimit = loanLimit
	}
	return cfg, nil
}

// openManager resolves configuration and opens the store.
func openManager(cmd *cobra.Command, storeKind, storePath string, loanLimit int) (*library.LibraryManager, library.Config, error) {
	cfg, err := resolveConfig(storeKind, storePath, loanLimit)
	if err != nil {
		return nil, cfg, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	store, err := library.OpenStore(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("open store: %w", err)
	}
	mgr, err := library.NewLibraryManager(store, logger, library.WithLoanLimit(cfg.LoanLimit))
	if err != nil {
		store.Close()
		return nil, cfg, err
	}
	logger.Debug("store opened", "kind", cfg.StoreKind, "path", cfg.StorePath)
	return mgr, cfg, nil
}
