package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agenda/internal/cache"
	"agenda/internal/calendar"
	"agenda/internal/config"
	"agenda/internal/notify"
	"agenda/internal/query"
	"agenda/internal/task"
	"agenda/internal/transfer"
)

// version is set at build time.
var version = "dev"

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "agenda",
		Short: "A task scheduler with reminders, offline cache and calendar sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cfg)
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newAddCmd(cfg),
		newListCmd(cfg),
		newExportCmd(cfg),
		newImportCmd(cfg),
		newSyncCmd(cfg),
		newRemindCmd(cfg),
		newOfflineCmd(cfg),
		newVersionCmd(),
	)
	return root
}

func newAddCmd(cfg config.Config) *cobra.Command {
	var (
		desc     string
		date     string
		clock    string
		priority string
		category string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			day, err := task.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", date, err)
			}
			t := task.New(args[0], desc, day, clock, task.Priority(priority), task.Category(category), time.Now())
			if err := store.AddTask(t); err != nil {
				return err
			}
			fmt.Printf("Added %q\n", t.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "m", "", "task description")
	cmd.Flags().StringVarP(&date, "date", "d", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&clock, "time", "t", "", "due time (HH:MM, requires --date)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "priority: high, medium or low")
	cmd.Flags().StringVarP(&category, "category", "c", "other", "category: work, personal, study, health, shopping or other")
	return cmd
}

func newListCmd(cfg config.Config) *cobra.Command {
	var (
		status   string
		priority string
		category string
		scope    string
		search   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by date",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}

			now := time.Now()
			q := query.Config{
				Status:   query.Status(status),
				Priority: priority,
				Category: category,
				Scope:    query.DateScope(scope),
				Search:   search,
			}
			visible := query.SortTasks(query.Filter(tasks, q, now), now)
			groups := query.GroupByDate(visible, now)

			if len(visible) == 0 {
				fmt.Println("No tasks match.")
				return nil
			}
			for _, b := range query.Buckets() {
				bucket := groups[b]
				if len(bucket) == 0 {
					continue
				}
				fmt.Printf("%s\n", b)
				for _, t := range bucket {
					printTask(t, now)
				}
				fmt.Println()
			}
			s := query.Stats(visible, now)
			fmt.Printf("%d tasks, %d pending, %d overdue, %d%% done\n",
				s.Total, s.Pending, s.Overdue, s.CompletionRate)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "status filter: all, active or completed")
	cmd.Flags().StringVar(&priority, "priority", "all", "priority filter")
	cmd.Flags().StringVar(&category, "category", "all", "category filter")
	cmd.Flags().StringVar(&scope, "scope", "all", "date scope: all, today, week or month")
	cmd.Flags().StringVar(&search, "search", "", "search in title and description")
	return cmd
}

func printTask(t task.Task, now time.Time) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("  [%s] %-8s %s", mark, t.Priority, t.Title)
	if t.HasDate() {
		line += "  " + task.FormatDate(t.Date)
		if t.Time != "" {
			line += " " + t.Time
		}
	}
	if t.IsOverdue(now) {
		line += "  (overdue)"
	}
	fmt.Println(line)
}

func newExportCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export all tasks as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}
			data, err := transfer.Export(tasks, time.Now())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return err
			}
			fmt.Printf("Exported %d task(s) to %s\n", len(tasks), args[0])
			return nil
		},
	}
}

func newImportCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a JSON export, replacing the current list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tasks, err := transfer.Import(data, time.Now())
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReplaceTasks(tasks); err != nil {
				return err
			}
			fmt.Printf("Imported %d task(s)\n", len(tasks))
			return nil
		},
	}
}

func newSyncCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push incomplete dated tasks to Google Calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}

			configDir, err := config.Dir()
			if err != nil {
				return err
			}
			srv, err := calendar.Service(cmd.Context(), configDir)
			if err != nil {
				return fmt.Errorf("calendar unavailable: %w", err)
			}

			client := calendar.NewClient(srv, cfg.CalendarID, store)
			res := client.Sync(tasks)
			client.Prune(tasks, &res)
			fmt.Printf("Synced: %d created, %d updated, %d deleted, %d skipped, %d error(s)\n",
				res.Created, res.Updated, res.Deleted, res.Skipped, res.Errors)
			return nil
		},
	}
}

func newRemindCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			prefs, err := store.GetPrefs()
			if err != nil {
				return err
			}
			if !prefs.Enabled {
				fmt.Println("Notifications are disabled.")
				return nil
			}

			configDir, err := config.Dir()
			if err != nil {
				return err
			}
			seen, err := notify.NewSeenTable(filepath.Join(configDir, "overdue-seen.json"))
			if err != nil {
				return err
			}

			sched := notify.NewScheduler(notify.LogNotifier{}, prefs, seen)
			defer sched.Stop()

			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}
			sched.ScheduleAll(tasks)

			fetch := func() []task.Task {
				current, err := store.FetchTasks()
				if err != nil {
					return nil
				}
				return current
			}
			sched.StartMorningReminder(fetch)
			sched.StartOverdueCheck(fetch, time.Hour)

			fmt.Println("Reminder scheduler running. Ctrl+C to stop.")
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
}

func newOfflineCmd(cfg config.Config) *cobra.Command {
	var (
		origin string
		addr   string
	)
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Serve an origin through the offline cache gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := url.Parse(origin)
			if err != nil {
				return fmt.Errorf("invalid origin %q: %w", origin, err)
			}

			gateway, err := cache.NewGateway(cfg.CacheDir, nil)
			if err != nil {
				return err
			}
			if err := gateway.Install(cmd.Context(), origin); err != nil {
				return fmt.Errorf("installing cache: %w", err)
			}
			defer gateway.Flush()

			proxy := httputil.NewSingleHostReverseProxy(target)
			proxy.Transport = gateway

			fmt.Printf("Serving %s through cache %s on %s\n", origin, gateway.Version(), addr)
			return http.ListenAndServe(addr, proxy)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "http://localhost:8000", "origin server to cache")
	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("agenda", version)
		},
	}
}
