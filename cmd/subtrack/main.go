package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/avigne/subtrack/internal/analytics"
	"github.com/avigne/subtrack/internal/models"
	"github.com/avigne/subtrack/internal/repository"
	"github.com/avigne/subtrack/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "subtrack",
		Usage: "Subscription portfolio analytics from a local CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Value:   "subscriptions.csv",
				Usage:   "Path to the portfolio CSV file",
				EnvVars: []string{"SUBTRACK_FILE"},
			},
		},
		Commands: []*cli.Command{
			dashboardCommand(),
			searchCommand(),
			forecastCommand(),
			budgetPlanCommand(),
			duplicatesCommand(),
			segmentsCommand(),
			expiringCommand(),
			importCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadPortfolio(c *cli.Context) ([]*models.Subscription, error) {
	store, err := repository.OpenCSVStore(c.String("file"))
	if err != nil {
		return nil, err
	}
	return store.ListSubscriptions(0)
}

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Print the portfolio report",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the full report as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}
			report := analytics.NewEngine(time.Now()).BuildReport(subs)

			if c.Bool("json") {
				return printJSON(report)
			}

			fmt.Printf("Portfolio health:  %.0f/100\n", report.Stats.HealthScore)
			fmt.Printf("Subscriptions:     %d (%d active)\n",
				report.Stats.TotalSubscriptions, report.Stats.ActiveCount)
			fmt.Printf("Monthly cost:      %.2f\n", report.Stats.TotalMonthlyCost)
			fmt.Printf("Avg lifetime spend: %.2f\n", report.Metrics.AverageLifetimeValue)
			if report.PotentialSavings > 0 {
				fmt.Printf("Potential savings: %.2f/month\n", report.PotentialSavings)
			}
			if len(report.TopSpenders) > 0 {
				fmt.Println("\nTop spenders:")
				for _, s := range report.TopSpenders {
					fmt.Printf("  %-24s %8.2f/month\n", s.ServiceName, s.MonthlyPrice)
				}
			}
			if len(report.Recommendations) > 0 {
				fmt.Println("\nRecommendations:")
				for _, rec := range report.Recommendations {
					fmt.Printf("  - %s\n", rec)
				}
			}
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Filter the portfolio by category, text and price range",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "category",
				Aliases: []string{"c"},
				Usage:   "Exact category match, case insensitive",
			},
			&cli.StringFlag{
				Name:    "text",
				Aliases: []string{"q"},
				Usage:   "Free text matched against name and notes",
			},
			&cli.Float64Flag{
				Name:  "min",
				Usage: "Lowest monthly price to include",
			},
			&cli.Float64Flag{
				Name:  "max",
				Usage: "Highest monthly price to include",
			},
		},
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}

			filter := service.SearchFilter{
				Category: c.String("category"),
				Text:     c.String("text"),
			}
			if c.IsSet("min") {
				min := c.Float64("min")
				filter.MinPrice = &min
			}
			if c.IsSet("max") {
				max := c.Float64("max")
				filter.MaxPrice = &max
			}

			matches := service.FilterSubscriptions(subs, filter)
			if len(matches) == 0 {
				fmt.Println("No subscriptions match.")
				return nil
			}
			for _, s := range matches {
				fmt.Printf("%-24s %-12s %8.2f/month\n", s.ServiceName, s.Category, s.MonthlyPrice)
			}
			return nil
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Project spending over the coming months",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "months",
				Aliases: []string{"m"},
				Value:   6,
				Usage:   "Forecast horizon in months",
			},
		},
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}
			result, err := analytics.NewEngine(time.Now()).ForecastCosts(subs, c.Int("months"))
			if err != nil {
				return err
			}

			for _, p := range result.Periods {
				fmt.Printf("%s  %10.2f\n", p.Period, p.Amount)
			}
			fmt.Printf("\nTotal:   %.2f\n", result.Total)
			fmt.Printf("Average: %.2f/month\n", result.Average)
			if result.PeakPeriod != "" {
				fmt.Printf("Peak:    %s (%.2f)\n", result.PeakPeriod, result.PeakAmount)
			}
			return nil
		},
	}
}

func budgetPlanCommand() *cli.Command {
	return &cli.Command{
		Name:  "budget-plan",
		Usage: "Compute cancellations needed to meet a monthly budget",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "target",
				Aliases:  []string{"t"},
				Usage:    "Target monthly budget",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}
			plan, err := analytics.NewEngine(time.Now()).PlanBudgetReduction(subs, c.Float64("target"))
			if err != nil {
				return err
			}

			fmt.Printf("Current spend: %.2f/month, target %.2f\n",
				plan.CurrentMonthlyCost, plan.TargetMonthlyBudget)
			if plan.RequiredSaving == 0 {
				fmt.Println("Already within budget, nothing to cancel.")
				return nil
			}
			fmt.Printf("Required saving: %.2f/month\n\n", plan.RequiredSaving)
			fmt.Println("Suggested cancellations, least valuable first:")
			for _, s := range plan.RecommendedCancellations {
				fmt.Printf("  %-24s %8.2f/month\n", s.ServiceName, s.MonthlyPrice)
			}
			fmt.Printf("\nAchieved saving: %.2f/month\n", plan.AchievedSaving)
			if !plan.TargetFeasible {
				fmt.Println("Target is not reachable even after cancelling everything.")
			}
			return nil
		},
	}
}

func duplicatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "duplicates",
		Usage: "Find overlapping and duplicate subscriptions",
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}
			groups := analytics.NewEngine(time.Now()).DetectDuplicates(subs)
			if len(groups) == 0 {
				fmt.Println("No duplicates found.")
				return nil
			}

			for i, g := range groups {
				fmt.Printf("Group %d (%s, similarity %.0f, %.2f/month):\n",
					i+1, g.GroupType, g.SimilarityScore, g.TotalCost)
				for _, m := range g.Members {
					fmt.Printf("  %-24s %8.2f/month\n", m.ServiceName, m.MonthlyPrice)
				}
				for _, sugg := range g.Suggestions {
					fmt.Printf("  -> drop %s, keep %s (saves %.2f/month): %s\n",
						sugg.Remove, sugg.Keep, sugg.PotentialSaving, sugg.Reason)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func segmentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "segments",
		Usage: "Cluster the portfolio into spending segments",
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}
			clusters := analytics.NewEngine(time.Now()).SegmentPortfolio(subs)

			for _, cluster := range clusters {
				fmt.Printf("%s (%d):\n", cluster.Label, len(cluster.Members))
				for _, m := range cluster.Members {
					fmt.Printf("  %-24s %8.2f/month\n", m.ServiceName, m.MonthlyPrice)
				}
			}
			return nil
		},
	}
}

func expiringCommand() *cli.Command {
	return &cli.Command{
		Name:  "expiring",
		Usage: "List subscriptions expiring soon",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Value: 30,
				Usage: "Look-ahead window in days",
			},
		},
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}
			now := time.Now()
			window := c.Int("days")

			found := false
			for _, s := range subs {
				days := s.DaysUntilExpiry(now)
				if days >= 0 && days <= window {
					fmt.Printf("%-24s ends %s (%d day(s))\n",
						s.ServiceName, s.EndDate.Format("2006-01-02"), days)
					found = true
				}
			}
			if !found {
				fmt.Printf("Nothing expires within %d days.\n", window)
			}
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import subscriptions from a CSV file into the portfolio",
		ArgsUsage: "<source.csv>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one source file")
			}
			f, err := os.Open(c.Args().First())
			if err != nil {
				return err
			}
			defer f.Close()

			subs, err := repository.ReadCSV(f)
			if err != nil {
				return err
			}
			store, err := repository.OpenCSVStore(c.String("file"))
			if err != nil {
				return err
			}
			if err := store.ReplaceAll(subs); err != nil {
				return err
			}
			fmt.Printf("Imported %d subscription(s) into %s\n", len(subs), c.String("file"))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the portfolio to a CSV file or stdout",
		ArgsUsage: "[target.csv]",
		Action: func(c *cli.Context) error {
			subs, err := loadPortfolio(c)
			if err != nil {
				return err
			}

			var out io.Writer = os.Stdout
			if c.NArg() == 1 {
				f, err := os.Create(c.Args().First())
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return repository.WriteCSV(out, subs)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
