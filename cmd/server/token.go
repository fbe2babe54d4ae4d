package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/config"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/middleware"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

var errNoSecret = errors.New("no JWT secret configured; set GFGP_JWT_SECRET or pass --dev")

type tokenOptions struct {
	UID   string
	Role  string
	Email string
	TTL   time.Duration
	Dev   bool
}

func newTokenCommand(configPath *string) *cobra.Command {
	var opts tokenOptions
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return mintToken(cmd.OutOrStdout(), cfg.JWTSecret, opts)
		},
	}
	cmd.Flags().StringVar(&opts.UID, "uid", "", "user id")
	cmd.Flags().StringVar(&opts.Role, "role", string(models.RoleGrantee), "grantee, grantor or admin")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 12*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "sign with the development secret")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func mintToken(out io.Writer, secret string, opts tokenOptions) error {
	role := models.Role(opts.Role)
	switch role {
	case models.RoleGrantee, models.RoleGrantor, models.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", opts.Role)
	}
	if secret == "" {
		if !opts.Dev {
			return errNoSecret
		}
		secret = middleware.DevSecret
	}
	if opts.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	tok, err := middleware.SignToken(secret, opts.UID, role, opts.Email, opts.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
