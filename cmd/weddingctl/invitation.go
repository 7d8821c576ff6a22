package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wedding-os/client/internal/api"
	"github.com/wedding-os/client/internal/config"
	"github.com/wedding-os/client/internal/invitation"
)

func designsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "designs",
		Short: "Manage saved invitation designs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved designs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				if err := a.requireLogin(); err != nil {
					return err
				}
				designs, err := a.invites.ListDesigns(ctx)
				if err != nil {
					a.toasts.Error(api.Message(err), 0)
					return err
				}
				return printJSON(cmd.OutOrStdout(), designs)
			})
		},
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("design id %q is not a number", args[0])
			}
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				d, err := a.invites.GetDesign(ctx, id)
				if err != nil {
					a.toasts.Error(api.Message(err), 0)
					return err
				}
				return printJSON(cmd.OutOrStdout(), d)
			})
		},
	}

	var dataFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a design from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readData("@" + dataFile)
			if err != nil {
				return err
			}
			var in invitation.DesignInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("decode design: %w", err)
			}
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				d, err := a.invites.CreateDesign(ctx, in)
				if err != nil {
					a.toasts.Error(api.Message(err), 0)
					return err
				}
				a.toasts.Success(fmt.Sprintf("Design %d saved", d.ID), 0)
				return printJSON(cmd.OutOrStdout(), d)
			})
		},
	}
	create.Flags().StringVarP(&dataFile, "file", "f", "", "design JSON file")
	_ = create.MarkFlagRequired("file")

	cmd.AddCommand(list, get, create)
	return cmd
}

func tonesCmd(cfg *config.Config) *cobra.Command {
	var info invitation.BasicInfo

	cmd := &cobra.Command{
		Use:   "tones",
		Short: "Suggest wording tones for an invitation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				tones, err := a.invites.GenerateTones(ctx, info)
				if err != nil {
					a.toasts.Error(api.Message(err), 0)
					return err
				}
				return printJSON(cmd.OutOrStdout(), tones)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&info.GroomName, "groom", "", "groom name")
	f.StringVar(&info.BrideName, "bride", "", "bride name")
	f.StringVar(&info.WeddingDate, "date", "", "wedding date (YYYY-MM-DD)")
	f.StringVar(&info.WeddingTime, "time", "", "wedding time")
	f.StringVar(&info.WeddingLocation, "location", "", "venue")
	f.StringVar(&info.AdditionalMessage, "message", "", "additional message")
	f.StringVar(&info.Requirements, "requirements", "", "requirements for the wording")
	_ = cmd.MarkFlagRequired("groom")
	_ = cmd.MarkFlagRequired("bride")
	return cmd
}

func mapCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "map ADDRESS",
		Short: "Geocode a venue address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				info, err := a.invites.MapInfo(ctx, args[0])
				if err != nil {
					a.toasts.Error("Could not look up the address", 0)
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}
}
