package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/huereka/huereka/internal/catalog"
	"github.com/huereka/huereka/internal/config"
	"github.com/huereka/huereka/internal/db"
	"github.com/huereka/huereka/internal/scheduler"
	"github.com/huereka/huereka/internal/state"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	At      string
	Manager string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print which profile each manager would show",
		Long: `Resolve every configured manager's schedules without touching the
controllers.

Example:
  huereka resolve
  huereka resolve --at 2026-03-02T21:30:00Z
  huereka resolve --at 21:30 --manager porch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(false)
			if err != nil {
				return err
			}
			return runResolve(opts, cfg, cmd.OutOrStdout(), time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "time to resolve at: RFC3339, or HH:MM today")
	cmd.Flags().StringVar(&opts.Manager, "manager", "", "only this manager")

	return cmd
}

func runResolve(opts *ResolveOptions, cfg *config.Config, out io.Writer, now time.Time) error {
	tz, err := cfg.Scheduler.Location()
	if err != nil {
		return err
	}
	at, err := parseAt(opts.At, now.In(tz))
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	cat, err := catalog.New(state.NewStore(database.DB), nil)
	if err != nil {
		return err
	}
	if err := cat.Seed(cfg.Profiles, cfg.Schedules); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s (%s)\n", at.Format(time.RFC3339), at.Weekday())
	fmt.Fprintln(tw, "MANAGER\tSCHEDULE\tROUTINE\tPROFILE\tBRIGHTNESS")
	found := false
	for _, m := range cfg.Managers {
		if opts.Manager != "" && m.ID != opts.Manager {
			continue
		}
		found = true
		d := scheduler.Resolve(cat, m.ID, m.Brightness, at)
		profile := d.Profile.ID
		if d.Missing != "" {
			profile = fmt.Sprintf("%s (missing %s)", profile, d.Missing)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", m.ID, dash(d.Schedule), dash(d.Routine), profile, d.Brightness)
	}
	if opts.Manager != "" && !found {
		return fmt.Errorf("unknown manager %q", opts.Manager)
	}
	return tw.Flush()
}

// parseAt accepts RFC3339 or a clock time on the day of now.
func parseAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(now.Location()), nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339 or HH:MM", s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
