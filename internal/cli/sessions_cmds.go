package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/forms"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newSessionsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and edit workout sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSessionsListCommand(app))
	cmd.AddCommand(newSessionsShowCommand(app))
	cmd.AddCommand(newSessionsNewCommand(app))
	cmd.AddCommand(newSessionsEditCommand(app))
	cmd.AddCommand(newSessionsDeleteCommand(app))
	return cmd
}

func newSessionsListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first, with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}
			list, err := app.store.ListSessions(ctx, uid)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stats := fitness.ComputeStats(list, app.now())
			fmt.Fprintf(out, "sessions: %d  minutes: %d  calories this week: %s\n\n",
				stats.TotalSessions, stats.TotalMinutes, formatFloat(stats.WeeklyCalories))
			if len(list) == 0 {
				fmt.Fprintln(out, "no sessions logged yet")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTITLE\tMIN\tINTENSITY\tKCAL")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					s.ID, s.Date, s.Title, s.Duration, deref(s.Intensity), formatOptionalFloat(s.CaloriesBurned))
			}
			return tw.Flush()
		},
	}
}

func newSessionsShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}
			s, err := app.store.GetSession(ctx, uid, args[0])
			if err != nil {
				return err
			}
			if s == nil {
				return fitness.ErrSessionNotFound
			}
			printSessionForm(cmd.OutOrStdout(), s.ID, forms.SessionFormFromRecord(*s))
			return nil
		},
	}
}

// sessionFlags are the form fields settable from the command line. Only
// flags the user passed override the form.
type sessionFlags struct {
	preset      string
	title       string
	date        string
	duration    int
	calories    string
	intensity   string
	source      string
	otherSource string
	description string
}

func (f *sessionFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.preset, "preset", "", "preset id to pre-fill the session from (see: fitlog presets)")
	flags.StringVar(&f.title, "title", "", "session title")
	flags.StringVar(&f.date, "date", "", "session date, YYYY-MM-DD")
	flags.IntVar(&f.duration, "duration", 0, "duration in minutes")
	flags.StringVar(&f.calories, "calories", "", "calories burned, empty for none")
	flags.StringVar(&f.intensity, "intensity", "", "light | moderate | intense")
	flags.StringVar(&f.source, "source", "", "where the session comes from")
	flags.StringVar(&f.otherSource, "other-source", "", "source text when --source is Other")
	flags.StringVar(&f.description, "description", "", "notes")
}

func (f *sessionFlags) apply(flags *pflag.FlagSet, form *forms.SessionForm) error {
	if flags.Changed("preset") {
		if !form.SelectPreset(f.preset) {
			return fmt.Errorf("unknown preset: %s", f.preset)
		}
	}
	if flags.Changed("title") {
		form.Title = f.title
	}
	if flags.Changed("date") {
		form.Date = f.date
	}
	if flags.Changed("duration") {
		form.Duration = f.duration
	}
	if flags.Changed("calories") {
		form.Calories = f.calories
	}
	if flags.Changed("intensity") {
		form.Intensity = f.intensity
	}
	if flags.Changed("source") {
		form.Source = f.source
	}
	if flags.Changed("other-source") {
		form.OtherSource = f.otherSource
	}
	if flags.Changed("description") {
		form.Description = f.description
	}
	return nil
}

func newSessionsNewCommand(app *App) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Log a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}

			form := forms.NewSessionForm(app.now())
			if err := flags.apply(cmd.Flags(), &form); err != nil {
				return err
			}
			in, err := form.ToInput()
			if err != nil {
				return err
			}

			created, err := app.store.CreateSession(ctx, uid, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s saved\n", created.ID)
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func newSessionsEditCommand(app *App) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a session; fields not passed keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}

			existing, err := app.store.GetSession(ctx, uid, args[0])
			if err != nil {
				return err
			}
			if existing == nil {
				return fitness.ErrSessionNotFound
			}

			form := forms.SessionFormFromRecord(*existing)
			if err := flags.apply(cmd.Flags(), &form); err != nil {
				return err
			}
			in, err := form.ToInput()
			if err != nil {
				return err
			}

			if _, err := app.store.UpdateSession(ctx, uid, existing.ID, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s updated\n", existing.ID)
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func newSessionsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.store.DeleteSession(ctx, uid, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s deleted\n", args[0])
			return nil
		},
	}
}

func newPresetsCommand(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List session presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tMIN\tINTENSITY\tKCAL\tSOURCE")
			for _, p := range fitness.Presets() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					p.ID, p.Title, p.Duration, p.Intensity, formatFloat(p.Calories), p.Source)
			}
			return tw.Flush()
		},
	}
}

func printSessionForm(out io.Writer, id string, form forms.SessionForm) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", id)
	preset := form.SelectedPreset
	if preset == forms.NoPreset {
		preset = "-"
	}
	fmt.Fprintf(tw, "preset:\t%s\n", preset)
	fmt.Fprintf(tw, "title:\t%s\n", form.Title)
	fmt.Fprintf(tw, "date:\t%s\n", form.Date)
	fmt.Fprintf(tw, "duration:\t%d min\n", form.Duration)
	fmt.Fprintf(tw, "intensity:\t%s\n", form.Intensity)
	fmt.Fprintf(tw, "calories:\t%s\n", form.Calories)
	if form.Source == fitness.SourceOther {
		fmt.Fprintf(tw, "source:\t%s (%s)\n", form.Source, form.OtherSource)
	} else {
		fmt.Fprintf(tw, "source:\t%s\n", form.Source)
	}
	fmt.Fprintf(tw, "description:\t%s\n", form.Description)
	_ = tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}
