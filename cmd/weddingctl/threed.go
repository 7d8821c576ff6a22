package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wedding-os/client/internal/api"
	"github.com/wedding-os/client/internal/config"
	"github.com/wedding-os/client/internal/invitation"
)

func threeDCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threed",
		Short: "Generate a 3-D invitation model",
	}
	cmd.AddCommand(threeDSubmitCmd(cfg), threeDStatusCmd(cfg))
	return cmd
}

func threeDSubmitCmd(cfg *config.Config) *cobra.Command {
	var (
		mainPath string
		refPaths []string
		noWait   bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Upload photos, start a 3-D job and wait for it to finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(refPaths) > invitation.MaxReferenceImages {
				return invitation.ErrTooManyReferences
			}

			draft := invitation.NewDraft()
			mainImg, err := invitation.LoadImage(mainPath)
			if err != nil {
				return err
			}
			draft.SetThreeDMainImage(&mainImg)

			refs := make([]invitation.Image, 0, len(refPaths))
			for _, p := range refPaths {
				img, err := invitation.LoadImage(p)
				if err != nil {
					return err
				}
				refs = append(refs, img)
			}
			draft.SetThreeDReferenceImages(refs)

			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				if err := a.requireLogin(); err != nil {
					return err
				}
				if _, err := a.invites.SubmitThreeD(ctx, draft); err != nil {
					a.toasts.Error("3-D request failed: "+api.Message(err), 0)
					return err
				}
				a.toasts.Info("3-D job submitted", 0)
				if noWait {
					return nil
				}
				return waitForJob(ctx, cmd, a, draft)
			})
		},
	}

	cmd.Flags().StringVarP(&mainPath, "main", "m", "", "main photo (required)")
	cmd.Flags().StringArrayVarP(&refPaths, "ref", "r", nil, fmt.Sprintf("reference photo (up to %d)", invitation.MaxReferenceImages))
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return right after submitting")
	_ = cmd.MarkFlagRequired("main")
	return cmd
}

func threeDStatusCmd(cfg *config.Config) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of the current 3-D job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				if wait {
					draft := invitation.NewDraft()
					draft.Update(func(v *invitation.DraftData) { v.ThreeD.Status = invitation.JobPending })
					return waitForJob(ctx, cmd, a, draft)
				}
				st, err := a.invites.ThreeDStatus(ctx, cfg.ThreeDPollInterval)
				if err != nil {
					a.toasts.Error(api.Message(err), 0)
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"status":            invitation.ClassifyStatus(st.Status),
					"serverStatus":      st.Status,
					"invitationId":      st.InvitationID,
					"result2dImageUrls": st.Result2DImageURLs,
					"message":           st.Message,
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the job finishes")
	return cmd
}

func waitForJob(ctx context.Context, cmd *cobra.Command, a *app, draft *invitation.Draft) error {
	poller := invitation.NewPoller(a.logger.Named("threed"), a.invites, a.cfg.ThreeDPollInterval)
	defer poller.Stop()

	unsubscribe := poller.Events().Subscribe(func(u invitation.JobUpdate) {
		switch u.Status {
		case invitation.JobRunning:
			a.toasts.Info("3-D model is being generated", 0)
		case invitation.JobDone:
			a.toasts.Success("3-D model ready", 0)
		case invitation.JobFailed:
			a.toasts.Error("3-D generation failed", 0)
		case invitation.JobCanceled:
			a.toasts.Warning("Stopped waiting for the 3-D job", 0)
		}
	})
	defer unsubscribe()

	status := poller.Poll(ctx, "threed", draft)
	td := draft.ThreeD()
	if status == invitation.JobFailed {
		return fmt.Errorf("3-D job failed: %s", td.Error)
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"status":            status,
		"invitationId":      td.InvitationID,
		"model3dUrl":        td.ModelURL(),
		"result2dImageUrls": td.Result2DImageURLs,
	})
}
