// Command createuser registers an account from a terminal. The password is
// prompted twice without echo.
//
//	createuser -email a@x.com [-c config.json] [-d dsn]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/travelkeeper/internal/flagx"
	"github.com/dmitrijs2005/travelkeeper/internal/prompt"
	"github.com/dmitrijs2005/travelkeeper/internal/server"
	"github.com/dmitrijs2005/travelkeeper/internal/server/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "createuser:", err)
		os.Exit(1)
	}
}

func parseEmail(args []string) (string, error) {
	var email string

	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&email, "email", "", "email of the new account")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email"})); err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("-email is required")
	}
	return email, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	email, err := parseEmail(args)
	if err != nil {
		return err
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := server.NewLogger(cfg)
	if err != nil {
		return err
	}

	db, rm, err := server.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sm, err := server.NewSessionManager(db, rm, cfg, logger)
	if err != nil {
		return err
	}

	password, err := prompt.NewPassword(out)
	if err != nil {
		return err
	}

	account, err := sm.Register(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created account %s (%s)\n", account.ID, account.Email)
	return nil
}
