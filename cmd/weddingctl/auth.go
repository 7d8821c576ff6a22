package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wedding-os/client/internal/api"
	"github.com/wedding-os/client/internal/auth"
	"github.com/wedding-os/client/internal/config"
	internalsecrets "github.com/wedding-os/client/internal/secrets"
	"github.com/wedding-os/client/pkg/logger"
	"github.com/wedding-os/client/pkg/secrets"
)

const credentialCacheTTL = 15 * time.Minute

func newResolver(ctx context.Context, cfg *config.Config) (*internalsecrets.Resolver, error) {
	provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return internalsecrets.NewResolver(
		logger.Named("secrets"),
		cfg.Env,
		provider,
		secrets.NewCache[auth.LoginPayload](credentialCacheTTL, nil),
	), nil
}

func loginCmd(cfg *config.Config) *cobra.Command {
	var email, password, profile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with an email and password, or with credentials stored in AWS
Secrets Manager under {env}/{profile}/weddingos (--secret).

The password may also be supplied through WEDDINGOS_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			payload := auth.LoginPayload{Email: email, Password: password}
			if payload.Password == "" {
				payload.Password = os.Getenv("WEDDINGOS_PASSWORD")
			}
			if profile != "" {
				resolver, err := newResolver(ctx, cfg)
				if err != nil {
					return err
				}
				if payload, err = resolver.Resolve(ctx, profile); err != nil {
					return err
				}
			}

			return runWithApp(ctx, cfg, func(ctx context.Context, a *app) error {
				user, err := a.session.Login(ctx, payload)
				if err != nil {
					a.toasts.Error(loginFailure(err), 0)
					return err
				}
				a.toasts.Success(fmt.Sprintf("Signed in as %s", user.Nickname), 0)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&profile, "secret", "", "read credentials for this profile from AWS Secrets Manager")
	cmd.MarkFlagsMutuallyExclusive("email", "secret")
	return cmd
}

func loginFailure(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return "Email and password are required"
	case errors.Is(err, auth.ErrCancelled):
		return "Sign-in timed out"
	default:
		return "Sign-in failed: " + api.Message(err)
	}
}

func logoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				if err := a.session.Logout(ctx); err != nil {
					return err
				}
				a.toasts.Info("Signed out", 0)
				return nil
			})
		},
	}
}

func whoamiCmd(cfg *config.Config) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				if refresh && !a.session.Refresh(ctx) {
					return errors.New("session refresh failed; sign in again")
				}
				if err := a.session.ReloadUser(ctx); err != nil {
					return err
				}
				user := a.session.User()
				if user == nil || !a.session.IsAuthenticated() {
					fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
					return nil
				}
				return printJSON(cmd.OutOrStdout(), user)
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "exchange the refresh token for a new access token first")
	return cmd
}

func profilesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List credential profiles stored in AWS Secrets Manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			profiles, err := resolver.Profiles(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range profiles {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
