package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"ropeaccess.com/crewtrack/config"
	"ropeaccess.com/crewtrack/core"
	"ropeaccess.com/crewtrack/infrastructure/devops"
	"ropeaccess.com/crewtrack/infrastructure/filesystem"
	"ropeaccess.com/crewtrack/lambdas/shortfall-report/helper"
	"ropeaccess.com/crewtrack/security"
	crew "ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/store"
)

const actor = "crewctl"

func main() {
	config.LoadEnv()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	dsn string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "crewctl",
		Short:         "Crewtrack administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.dsn == "" {
				a.dsn = cfg.DSN
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "database DSN (defaults to $DSN)")

	root.AddCommand(a.newMigrateCmd())
	root.AddCommand(a.newImportCmd())
	root.AddCommand(a.newTokenCmd())
	root.AddCommand(a.newProgressCmd())
	root.AddCommand(a.newAdjustCmd())
	root.AddCommand(a.newReplayCmd())
	root.AddCommand(a.newShortfallsCmd())
	root.AddCommand(a.newReportCmd())
	return root
}

func (a *app) db() (*gorm.DB, error) {
	if a.dsn == "" {
		return nil, fmt.Errorf("no DSN: pass --dsn or set DSN")
	}
	return core.ConnectDB(a.dsn, core.ParseLogLevel(a.cfg.DBLogLevel))
}

func (a *app) manager(ctx context.Context) (*crew.Manager, error) {
	db, err := a.db()
	if err != nil {
		return nil, err
	}

	var params devops.ParameterGetter
	if a.cfg.ReasonCatalogParam != "" {
		if params, err = devops.NewParameterGetter(ctx); err != nil {
			return nil, err
		}
	}
	catalog, err := devops.LoadReasonCatalog(ctx, a.cfg.ReasonCatalogFile, a.cfg.ReasonCatalogParam, params)
	if err != nil {
		return nil, err
	}
	return crew.NewManager(store.NewGormStore(db), catalog), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the project, session and event tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(store.Models()...); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-projects <file.csv>",
		Short: "Insert or update projects from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			projects, err := ParseProjectsCSV(f)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no projects")
				return nil
			}

			db, err := a.db()
			if err != nil {
				return err
			}
			if err := UpsertProjects(db, projects).Error; err != nil {
				return fmt.Errorf("failed to save projects: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d project(s)\n", len(projects))
			return nil
		},
	}
}

func (a *app) newTokenCmd() *cobra.Command {
	var name, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <workerId>",
		Short: "Issue a signed worker token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.SigningSecret) == 0 {
				return fmt.Errorf("SIGNING_SECRET is not set")
			}
			token, err := security.CreateWorkerToken(&security.WorkerIdentity{WorkerID: args[0], Name: name, Role: role}, a.cfg.SigningSecret, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", security.RoleWorker, "worker|admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func (a *app) newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <projectId>",
		Short: "Show computed project progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.manager(ctx)
			if err != nil {
				return err
			}
			progress, err := m.Progress(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, progress)
		},
	}
}

func (a *app) newAdjustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <projectId> <direction=count>...",
		Short: "Correct completed drops per direction to absolute counts",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := ParseTargets(args[1:])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			m, err := a.manager(ctx)
			if err != nil {
				return err
			}
			progress, err := m.SetAdjustments(ctx, args[0], actor, targets)
			if err != nil {
				return err
			}
			return printJSON(cmd, progress)
		},
	}
}

func (a *app) newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <projectId>",
		Short: "Rebuild the project's adjustments and percentage from its event ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.manager(ctx)
			if err != nil {
				return err
			}
			project, err := m.RebuildProjection(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, project)
		},
	}
}

func (a *app) newShortfallsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "shortfalls <projectId>",
		Short: "Classify ended sessions against the daily target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.manager(ctx)
			if err != nil {
				return err
			}
			report, err := m.Shortfalls(ctx, args[0], crew.SessionFilter{FromDate: from, ToDate: to})
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first work date, yyyy-MM-dd")
	cmd.Flags().StringVar(&to, "to", "", "last work date, yyyy-MM-dd")
	return cmd
}

func (a *app) newReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report <workDate>",
		Short: "Download the shortfall workbook for a date from the report bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ReportBucket == "" {
				return fmt.Errorf("REPORT_BUCKET is not set")
			}
			ctx := cmd.Context()
			bucket, err := filesystem.ConnectBucket(ctx, a.cfg.ReportBucket)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("shortfalls-%s.xlsx", args[0])
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := bucket.ReadFile(ctx, helper.ReportKey(args[0]), f); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}
