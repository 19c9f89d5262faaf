package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/pkg/models"
)

var (
	newDescription string
	newType        string
	newStyle       string
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new game project session",
	Long: `Create a new project session. Later commands use the most recently
updated session unless --session is given.

Examples:
  gads new "Star Miner"
  gads new "Star Miner" --type 3d --style "low poly" --description "Asteroid mining roguelite"`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVarP(&newDescription, "description", "d", "", "Short description of the game")
	newCmd.Flags().StringVarP(&newType, "type", "t", "2d", "Project type: 2d or 3d")
	newCmd.Flags().StringVar(&newStyle, "style", "", "Art style hint")
}

func runNew(cmd *cobra.Command, args []string) error {
	kind, ok := models.ParseProjectKind(newType)
	if !ok {
		return fmt.Errorf("invalid project type %q: must be 2d or 3d", newType)
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.newOrchestrator(pipeline.AutoApprove)
	if err != nil {
		return err
	}
	sess, err := orch.NewProject(args[0], newDescription, kind, newStyle)
	if err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("Created project %s", color.New(color.Bold).Sprint(sess.Project.Name)), color.FgGreen)
	fmt.Printf("  session: %s\n", sess.ID)
	fmt.Printf("  type:    %s\n", sess.Project.Kind)
	fmt.Printf("  phase:   %s\n", sess.Project.CurrentPhase)
	if sess.Project.StyleHint != "" {
		fmt.Printf("  style:   %s\n", sess.Project.StyleHint)
	}
	fmt.Println()
	fmt.Println("Next: gads pipeline run new-game \"<your game idea>\"")
	return nil
}
