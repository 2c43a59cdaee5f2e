package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/tui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage plans",
}

var (
	planName        string
	planDescription string
	planContext     string
	planCreator     string
)

var planNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new plan",
	Long: `Create a new empty plan. Missing fields are collected interactively
when running in a terminal.`,
	RunE: runPlanNew,
}

var hideCompleted bool

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans with their progress",
	RunE:  runPlanList,
}

func init() {
	planNewCmd.Flags().StringVar(&planName, "name", "", "plan name")
	planNewCmd.Flags().StringVar(&planDescription, "description", "", "what the plan accomplishes")
	planNewCmd.Flags().StringVar(&planContext, "context", "", "build context the plan executes in")
	planNewCmd.Flags().StringVar(&planCreator, "creator", "", "who is creating the plan")

	planListCmd.Flags().BoolVar(&hideCompleted, "hide-completed", false, "omit fully completed plans")

	planCmd.AddCommand(planNewCmd)
	planCmd.AddCommand(planListCmd)
	rootCmd.AddCommand(planCmd)
}

// isInteractive returns true if stdin is a terminal (not piped)
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func runPlanNew(cmd *cobra.Command, args []string) error {
	if (planName == "" || planDescription == "" || planContext == "" || planCreator == "") && isInteractive() {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Plan name").
				Placeholder("release 2.0").
				Value(&planName),
			huh.NewInput().
				Title("Description").
				Placeholder("what should this plan accomplish?").
				Value(&planDescription),
			huh.NewInput().
				Title("Build context").
				Placeholder("repo, stack, environment").
				Value(&planContext),
			huh.NewInput().
				Title("Creator").
				Value(&planCreator),
		))
		if err := form.Run(); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.cleanup()

	p, err := a.service.CreatePlan(cmd.Context(), planName, planDescription, planContext, planCreator)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", tui.TitleStyle.Render("Created plan"), p.Name)
	fmt.Printf("  id: %s\n", p.ID)
	return nil
}

func runPlanList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.cleanup()

	summaries, err := a.service.ListPlans(cmd.Context(), hideCompleted)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No plans. Create one with: taskplan plan new")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Underline(true)
	fmt.Printf("%-38s %-24s %-12s %8s %10s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("NAME"),
		headerStyle.Render("STATUS"),
		headerStyle.Render("TASKS"),
		headerStyle.Render("DONE"))

	for _, s := range summaries {
		line := fmt.Sprintf("%-38s %-24s %-12s %8d %9.1f%%",
			s.ID, truncate(s.Name, 24), string(s.Status), s.Total, s.PercentComplete)
		if s.Status == plan.StatusCompleted {
			line = tui.SubtleStyle.Render(line)
		}
		fmt.Println(line)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
