package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/maralabs/gomara/internal/store"
	"github.com/maralabs/gomara/pkg/metrics"
	"github.com/maralabs/gomara/pkg/scoring"
)

func init() {
	// onboard
	var name, partner, duration string
	onboardCmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || partner == "" {
				return fmt.Errorf("--name and --partner required")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.store.CompleteOnboarding(name, partner, duration)
			if err != nil {
				return err
			}
			fmt.Printf("Welcome, %s. Mara is ready when you are.\n", p.Name)
			return nil
		},
	}
	onboardCmd.Flags().StringVarP(&name, "name", "n", "", "Your name (required)")
	onboardCmd.Flags().StringVarP(&partner, "partner", "p", "", "Partner's name (required)")
	onboardCmd.Flags().StringVarP(&duration, "duration", "d", "", "Relationship duration bucket")
	rootCmd.AddCommand(onboardCmd)

	// log add / log list
	logCmd := &cobra.Command{Use: "log", Short: "Daily log operations"}

	var date, note, source string
	var rating, energy int
	var redFlag, vision bool
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Save today's log (replaces an existing log for the same date)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rating < 1 || rating > 10 {
				return fmt.Errorf("--rating must be 1-10")
			}
			if energy < -1 || energy > 1 {
				return fmt.Errorf("--energy must be -1, 0 or 1")
			}
			src := store.SourceInternal
			if source == "external" {
				src = store.SourceExternal
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			saved, _, err := a.store.SaveLogEntry(store.NewLogEntry{
				Date:    date,
				Rating:  rating,
				Source:  src,
				Energy:  store.EnergyLevel(energy),
				RedFlag: redFlag,
				Vision:  vision,
				Note:    note,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s: clarity score %d\n", saved.Date, saved.CalculatedScore)
			return nil
		},
	}
	addCmd.Flags().StringVar(&date, "date", "", "Calendar date (default today)")
	addCmd.Flags().IntVarP(&rating, "rating", "r", 0, "Mood rating 1-10 (required)")
	addCmd.Flags().IntVarP(&energy, "energy", "e", 0, "Energy: -1 drained, 0 neutral, 1 charged")
	addCmd.Flags().StringVar(&source, "source", "internal", "Attribution: internal or external")
	addCmd.Flags().BoolVar(&redFlag, "red-flag", false, "A boundary was crossed today")
	addCmd.Flags().BoolVar(&vision, "vision", false, "You can see yourself here in 5 years")
	addCmd.Flags().StringVar(&note, "note", "", "Free-text note")
	_ = addCmd.MarkFlagRequired("rating")
	logCmd.AddCommand(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List logs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			logs, state := a.store.ListLogs()
			if state == store.LoadRecovered {
				fmt.Fprintln(os.Stderr, "note: stored logs were unreadable and have been reset")
			}
			for _, l := range logs {
				flag := " "
				if l.RedFlag {
					flag = "⚑"
				}
				fmt.Printf("%s %s score=%3d mood=%2d energy=%+d %s\n",
					flag, l.Date, l.CalculatedScore, l.Rating, l.Energy, l.Note)
			}
			return nil
		},
	}
	logCmd.AddCommand(listCmd)
	rootCmd.AddCommand(logCmd)

	// metrics
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the dashboard metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			logs, _ := a.store.ListLogs()
			summary := metrics.Compute(logs)
			buckets := metrics.Buckets(logs)

			fmt.Printf("Clarity score: %d (%s)\n", summary.CurrentScore, summary.Trend)
			fmt.Printf("Average mood:  %d/10\n", summary.AvgMood)
			fmt.Printf("Red flags:     %d\n", summary.RedFlagCount)
			fmt.Printf("Internal attribution: %d%%\n", summary.InternalExternalSplit)
			fmt.Printf("Days: %d healthy / %d warning / %d critical\n",
				buckets.Healthy, buckets.Warning, buckets.Critical)

			if p := a.store.GetProfile(); p != nil {
				_, title := scoring.LevelForPoints(p.ClarityPoints)
				fmt.Printf("Level %d (%s), %d points\n", p.Level, title, p.ClarityPoints)
			}
			return nil
		},
	}
	rootCmd.AddCommand(metricsCmd)

	// calendar
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the 30-day path as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			logs, _ := a.store.ListLogs()
			window := metrics.CalendarWindow(logs, time.Now(), 30)
			out, err := json.MarshalIndent(window, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	rootCmd.AddCommand(calendarCmd)
}
