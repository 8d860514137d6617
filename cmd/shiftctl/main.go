// Command shiftctl runs operator tasks against the configured store.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/bootstrap"
	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/services/auth"
	"github.com/evn/pos_backend/internal/store"
)

func main() {
	cfg := config.NewConfig()
	config.SetLogLevel(cfg.LogLevel)

	app := &cli.App{
		Name:  "shiftctl",
		Usage: "operate the shift ledger",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply the schema or indexes of the configured store",
				Action: func(c *cli.Context) error {
					return withStore(c.Context, cfg, func(ctx context.Context, st store.Store) error {
						if err := st.Migrate(ctx); err != nil {
							return fmt.Errorf("migrate: %w", err)
						}
						fmt.Fprintf(c.App.Writer, "migrated %s store\n", cfg.StoreDriver)
						return nil
					})
				},
			},
			{
				Name:  "issue-token",
				Usage: "sign an API token for an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Usage: "account id", Required: true},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: 7 * 24 * time.Hour},
				},
				Action: func(c *cli.Context) error {
					token, err := auth.NewJWTService(cfg.JwtSecret).GenerateToken(strings.TrimSpace(c.String("account")), c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
			{
				Name:  "create-branch",
				Usage: "create a branch owned by an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "owner account id", Required: true},
					&cli.StringFlag{Name: "name", Usage: "branch name", Required: true},
				},
				Action: func(c *cli.Context) error {
					owner := strings.TrimSpace(c.String("owner"))
					name := strings.TrimSpace(c.String("name"))
					if owner == "" || name == "" {
						return cli.Exit("owner and name must not be blank", 1)
					}
					return withStore(c.Context, cfg, func(ctx context.Context, st store.Store) error {
						b := &models.Branch{
							ID:        uuid.NewString(),
							OwnerID:   owner,
							Name:      name,
							CreatedAt: time.Now().UTC(),
						}
						if err := st.CreateBranch(ctx, b); err != nil {
							return fmt.Errorf("create branch: %w", err)
						}
						fmt.Fprintln(c.App.Writer, b.ID)
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		config.GetLogger().WithError(err).Error("shiftctl failed")
		os.Exit(1)
	}
}

func withStore(ctx context.Context, cfg *config.Config, fn func(context.Context, store.Store) error) error {
	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}
