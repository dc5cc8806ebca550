package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinica/intranet-api/internal/workflow"
	"github.com/clinica/intranet-api/pkg/validator"
)

var errNoAPI = errors.New("INTAKE_API_URL is not set")

type cli struct {
	cfg intakeConfig
	app *app
}

// load builds the app on first use and reuses it for later commands.
func (c *cli) load(ctx context.Context) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := newApp(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.close()
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "intake",
		Short:         "Multidisciplinary anamnesis intake",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		c.loginCmd(),
		c.whoamiCmd(),
		c.sectionsCmd(),
		c.submitCmd(),
		c.recordsCmd(),
		c.recordCmd(),
		c.notificationsCmd(),
		c.readCmd(),
		c.searchCmd(),
		c.patientCmd(),
		c.seedCmd(),
		c.watchCmd(),
		c.shellCmd(),
	)
	return root
}

// run wraps a command body that needs the controller.
func (c *cli) run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := c.load(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd.Context(), a, cmd, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <usuario> <senha>",
		Short: "Log in as a workflow role",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			u, err := a.ctrl.Login(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", u.Username, u.Role)
			return nil
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			u, err := a.ctrl.CurrentUser(ctx)
			if err != nil {
				return err
			}
			if u == nil {
				return workflow.ErrNotLoggedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Username, u.Role)
			return nil
		}),
	}
}

func (c *cli) sectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the form sections visible to the current role",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			sections, err := a.ctrl.VisibleSections(ctx)
			if err != nil {
				return err
			}
			for _, s := range sections {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		}),
	}
}

func (c *cli) submitCmd() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "submit [campo=valor...]",
		Short: "Submit the current role's part of an anamnesis",
		Long:  "Without --id a new anamnesis is created; with --id the fields are merged into it.",
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			fields, err := workflow.ParseFields(args)
			if err != nil {
				return err
			}
			rec, err := a.ctrl.Submit(ctx, id, fields)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "anamnesis id to update")
	return cmd
}

func (c *cli) recordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List anamneses, newest first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			records, err := a.ctrl.Records(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\tTO=%s Fono=%s Psico=%s\n",
					r.ID, r.Field(workflow.FieldPatientName), r.OverallStatus, r.TOStatus, r.FonoStatus, r.PsicoStatus)
			}
			return nil
		}),
	}
}

func (c *cli) recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <id>",
		Short: "Show one anamnesis",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, ok := validator.SanitizeInt(args[0], validator.Min(1))
			if !ok {
				return fmt.Errorf("invalid anamnesis id %q", args[0])
			}
			rec, err := a.ctrl.Record(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		}),
	}
}

func (c *cli) notificationsCmd() *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List the current role's notifications",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			notes, err := a.ctrl.Notifications(ctx, unread)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, n := range notes {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(w, "%s %s\t%d\t%s\n", mark, n.ID, n.AnamnesisID, n.Message)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	return cmd
}

func (c *cli) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return a.ctrl.MarkRead(ctx, args[0])
		}),
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <nome>",
		Short: "Search patients by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			res, err := a.ctrl.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
}

func (c *cli) patientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patient <codigo>",
		Short: "Fetch a patient from the intranet API",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.api == nil {
				return errNoAPI
			}
			code, ok := validator.SanitizeInt(args[0], validator.Min(1))
			if !ok {
				return fmt.Errorf("invalid patient code %q", args[0])
			}
			p, err := a.api.GetPatient(ctx, code)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("patient %d not found", code)
			}
			return printJSON(cmd.OutOrStdout(), p)
		}),
	}
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample anamneses when none exist",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			seeded, err := a.ctrl.SeedIfEmpty(ctx)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "sample anamneses loaded")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "anamneses already present")
			}
			return nil
		}),
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream new notifications for the current role",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return errors.New("watch requires INTAKE_STORE=redis")
			}
			u, err := a.ctrl.CurrentUser(ctx)
			if err != nil {
				return err
			}
			if u == nil {
				return workflow.ErrNotLoggedIn
			}

			ch, err := a.store.Subscribe(ctx, u.Role)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for n := range ch {
				fmt.Fprintf(w, "%s\t%d\t%s\n", n.ID, n.AnamnesisID, n.Message)
			}
			return nil
		}),
	}
}

// shellCmd runs commands read line by line against one app, so the memory
// store keeps its state between them.
func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.Fields(scanner.Text())
				if len(line) == 0 {
					continue
				}
				if line[0] == "exit" || line[0] == "quit" {
					return nil
				}
				if line[0] == "shell" {
					fmt.Fprintln(out, "error: already in shell")
					continue
				}

				sub := c.rootCmd()
				sub.SetArgs(line)
				sub.SetOut(out)
				sub.SetErr(cmd.ErrOrStderr())
				if err := sub.ExecuteContext(cmd.Context()); err != nil {
					fmt.Fprintln(out, "error:", err)
				}
			}
		},
	}
}
