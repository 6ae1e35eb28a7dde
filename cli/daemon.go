package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/windrun-ai/workflowcore/daemon"
)

// NewDaemonCmd creates the "daemon" command group: running the cron
// scheduler unattended and managing the schedules it dispatches.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and manage scheduled workflows",
	}
	addPersistentConfigFlag(cmd)
	cmd.AddCommand(newDaemonRunCmd())
	cmd.AddCommand(newDaemonScheduleAddCmd())
	cmd.AddCommand(newDaemonScheduleListCmd())
	cmd.AddCommand(newDaemonTriggerCmd())
	return cmd
}

// schedulePath resolves the on-disk JSON file backing the daemon's schedule
// list for this invocation, rooted under the workspace data directory so
// "daemon schedule add" and "daemon run" agree on where schedules live.
func schedulePath(app *App) string {
	dir := app.Config.DataDir
	if dir == "" {
		dir = "."
	}
	return dir + "/schedules.json"
}

// loadScheduleStore reads the on-disk schedule list into a fresh
// MemoryScheduleStore. Missing files yield an empty store.
func loadScheduleStore(path string) (*daemon.MemoryScheduleStore, error) {
	store := daemon.NewMemoryScheduleStore()
	// #nosec G304 -- path is derived from the resolved workspace config.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, err
	}
	var scheds []daemon.WorkflowSchedule
	if err := json.Unmarshal(data, &scheds); err != nil {
		return nil, err
	}
	for _, s := range scheds {
		if err := store.Create(context.Background(), s); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func saveScheduleStore(path string, store *daemon.MemoryScheduleStore) error {
	scheds, err := store.List(context.Background())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(scheds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func newDaemonScheduleAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule-add <id> <workflow.json> <cron>",
		Short: "Register a new workflow schedule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			path := schedulePath(app)
			store, err := loadScheduleStore(path)
			if err != nil {
				return exitError(exitRuntime, "loading schedules: %v", err)
			}

			now := time.Now().UTC()
			sched := daemon.WorkflowSchedule{
				ID:           args[0],
				WorkflowPath: args[1],
				Cron:         args[2],
				Enabled:      true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := store.Create(cmd.Context(), sched); err != nil {
				return exitError(exitValidation, "adding schedule: %v", err)
			}
			if err := saveScheduleStore(path, store); err != nil {
				return exitError(exitRuntime, "saving schedules: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schedule %s registered\n", sched.ID)
			return nil
		},
	}
	return cmd
}

func newDaemonScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule-list",
		Short: "List registered schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			store, err := loadScheduleStore(schedulePath(app))
			if err != nil {
				return exitError(exitRuntime, "loading schedules: %v", err)
			}
			scheds, err := store.List(cmd.Context())
			if err != nil {
				return exitError(exitRuntime, "listing schedules: %v", err)
			}
			data, err := json.MarshalIndent(scheds, "", "  ")
			if err != nil {
				return exitError(exitRuntime, "marshaling schedules: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newDaemonTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <schedule-id>",
		Short: "Run one schedule immediately, outside its cron tick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			path := schedulePath(app)
			store, err := loadScheduleStore(path)
			if err != nil {
				return exitError(exitRuntime, "loading schedules: %v", err)
			}
			sched, err := daemon.NewScheduler(daemon.SchedulerConfig{
				Store:  store,
				Runner: app.Runner,
				Policy: app.Config.DefaultPolicy,
				Logger: app.Logger,
			})
			if err != nil {
				return exitError(exitRuntime, "building scheduler: %v", err)
			}

			ran, err := sched.Trigger(cmd.Context(), args[0])
			if err != nil {
				return exitError(exitNotFound, "%v", err)
			}
			if err := saveScheduleStore(path, store); err != nil {
				return exitError(exitRuntime, "saving schedules: %v", err)
			}
			if !ran {
				fmt.Fprintf(cmd.OutOrStdout(), "schedule %s skipped: already running\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schedule %s ran\n", args[0])
			return nil
		},
	}
}

func newDaemonRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the cron scheduler and block until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			path := schedulePath(app)
			store, err := loadScheduleStore(path)
			if err != nil {
				return exitError(exitRuntime, "loading schedules: %v", err)
			}
			sched, err := daemon.NewScheduler(daemon.SchedulerConfig{
				Store:  store,
				Runner: app.Runner,
				Policy: app.Config.DefaultPolicy,
				Logger: app.Logger,
			})
			if err != nil {
				return exitError(exitRuntime, "building scheduler: %v", err)
			}

			if err := sched.Start(cmd.Context()); err != nil {
				return exitError(exitRuntime, "starting scheduler: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daemon running, press ctrl-c to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			if err := sched.Stop(cmd.Context()); err != nil {
				return exitError(exitRuntime, "stopping scheduler: %v", err)
			}
			return saveScheduleStore(path, store)
		},
	}
}
