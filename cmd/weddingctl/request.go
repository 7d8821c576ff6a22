package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wedding-os/client/internal/api"
	"github.com/wedding-os/client/internal/config"
)

func requestCmd(cfg *config.Config) *cobra.Command {
	var (
		data       string
		fields     []string
		headers    []string
		skipAuth   bool
		withCookie bool
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an arbitrary API request as the signed-in user",
		Example: `  weddingctl request GET /invitation-designs
  weddingctl request POST /budget -d '{"amount":100000}'
  weddingctl request POST /invitations/3d -F mainImage=@me.jpg -F note=hello`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := api.Options{
				Method:   strings.ToUpper(args[0]),
				SkipAuth: skipAuth,
				Header:   map[string]string{},
			}
			if withCookie {
				opts.Credentials = api.CredentialsInclude
			}
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("header %q must be Name: value", h)
				}
				opts.Header[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}

			switch {
			case data != "" && len(fields) > 0:
				return fmt.Errorf("--data and --form cannot be combined")
			case data != "":
				body, err := readData(data)
				if err != nil {
					return err
				}
				opts.Body = body
			case len(fields) > 0:
				form, err := buildForm(fields)
				if err != nil {
					return err
				}
				opts.Body = form
			}

			return runWithApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
				var body []byte
				res, err := a.client.Request(ctx, args[1], opts, &body)
				if err != nil {
					a.toasts.Error(api.Message(err), 0)
					return err
				}
				if res.Cancelled {
					a.toasts.Warning("Request cancelled", 0)
					return nil
				}
				if json.Valid(body) {
					var v any
					_ = json.Unmarshal(body, &v)
					return printJSON(cmd.OutOrStdout(), v)
				}
				_, err = cmd.OutOrStdout().Write(body)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, or @file to read it from a file")
	cmd.Flags().StringArrayVarP(&fields, "form", "F", nil, "multipart field name=value or name=@file (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header 'Name: value' (repeatable)")
	cmd.Flags().BoolVar(&skipAuth, "skip-auth", false, "do not send the Authorization header")
	cmd.Flags().BoolVar(&withCookie, "cookies", false, "send and store cookies")
	return cmd
}

func readData(data string) (json.RawMessage, error) {
	raw := []byte(data)
	if path, ok := strings.CutPrefix(data, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func buildForm(fields []string) (*api.Form, error) {
	form := api.NewForm()
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("form field %q must be name=value", f)
		}
		if path, isFile := strings.CutPrefix(value, "@"); isFile {
			if err := form.AddFileFromPath(name, path); err != nil {
				return nil, err
			}
			continue
		}
		form.AddField(name, value)
	}
	return form, nil
}
