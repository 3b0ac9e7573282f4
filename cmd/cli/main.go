package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/auth"
	"github.com/alextreichler/luxora/internal/config"
	"github.com/alextreichler/luxora/internal/export"
	"github.com/alextreichler/luxora/internal/store"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:          "luxora-cli",
	Short:        "Administer a Luxora shop database",
	SilenceUsage: true,
}

// addUserCmd creates an account directly in the database
var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create a user account",
	Long: `Create a user account.

With --admin the account is created as an administrator, or promoted and its
password replaced when the username already exists.`,
	RunE: runAddUser,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
		return nil
	},
}

// exportCmd writes the catalog or the order ledger as CSV or XLSX
var exportCmd = &cobra.Command{
	Use:       "export products|orders",
	Short:     "Export products or orders",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"products", "orders"},
	RunE:      runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (defaults to DATABASE_URL)")

	addUserCmd.Flags().String("username", "", "username for the new user")
	addUserCmd.Flags().String("password", "", "password for the new user")
	addUserCmd.Flags().String("email", "", "email address (defaults to <username>@localhost.local for admins)")
	addUserCmd.Flags().Bool("admin", false, "grant admin access")
	addUserCmd.MarkFlagRequired("username")
	addUserCmd.MarkFlagRequired("password")

	exportCmd.Flags().String("format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringP("out", "o", "", "output file (defaults to <what>-<date>.<ext>, - for stdout)")

	rootCmd.AddCommand(addUserCmd, migrateCmd, exportCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// openStore opens the configured database and brings its schema up to date.
func openStore(ctx context.Context) (*store.Store, error) {
	url := databaseURL
	if url == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, err
		}
		url = cfg.DatabaseURL
	}

	db, err := store.NewStore(url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Ensure tables exist if running cli before server
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func runAddUser(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	email, _ := cmd.Flags().GetString("email")
	admin, _ := cmd.Flags().GetBool("admin")

	db, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	svc := auth.NewService(db)
	if admin {
		_, err = svc.EnsureAdmin(cmd.Context(), username, email, password)
	} else {
		_, err = svc.Register(cmd.Context(), auth.Registration{
			Username:        username,
			Email:           email,
			Password:        password,
			ConfirmPassword: password,
		})
	}
	if err != nil {
		if apperrors.Is(err, apperrors.KindValidation) {
			return fmt.Errorf("create user: %s", strings.Join(apperrors.UserMessages(err), "; "))
		}
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User '%s' created successfully.\n", username)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	what := args[0]
	rawFormat, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	if out == "" {
		out = format.Filename(what, time.Now())
	}

	db, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	var w io.Writer = cmd.OutOrStdout()
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := writeExport(cmd.Context(), db, w, what, format); err != nil {
		return fmt.Errorf("export %s: %w", what, err)
	}

	if out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
	}
	return nil
}

func writeExport(ctx context.Context, db *store.Store, w io.Writer, what string, format export.Format) error {
	if what == "orders" {
		orders, err := db.ListOrders(ctx, 0, 0)
		if err != nil {
			return err
		}
		return export.WriteOrders(w, format, orders)
	}
	products, _, err := db.ListProducts(ctx, store.ProductFilter{Sort: "id", Order: "asc"})
	if err != nil {
		return err
	}
	return export.WriteProducts(w, format, products)
}
