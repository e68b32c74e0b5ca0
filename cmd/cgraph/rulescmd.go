package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cgraph/internal/rules"
	"cgraph/internal/storage"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage architecture rules",
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply an architecture definition file",
	Long: `Load module and rule definitions from a YAML file (default:
.cgraph/architecture.yaml) and write them into the store, reassigning
files to modules by path pattern.

Examples:
  cgraph rules apply
  cgraph rules apply arch/layers.yaml`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRulesApply,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's architecture rules",
	Args:  cobra.NoArgs,
	Run:   runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesApplyCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesApply(cmd *cobra.Command, args []string) {
	app, err := openProject()
	if err != nil {
		fatal("%v", err)
	}
	defer app.close()

	path := rules.DefinitionPath(app.project.RootPath)
	if len(args) == 1 {
		path = args[0]
	}

	def, err := rules.Load(path)
	if err != nil {
		fatal("%v", err)
	}

	applier := rules.NewApplier(app.db, app.logger)
	if err := applier.Apply(app.project, def); err != nil {
		fatal("failed to apply definition: %v", err)
	}

	fmt.Printf("Applied %d modules and %d rules from %s\n",
		len(def.Modules), len(def.Rules), path)
}

func runRulesList(cmd *cobra.Command, args []string) {
	app, err := openProject()
	if err != nil {
		fatal("%v", err)
	}
	defer app.close()

	ruleRows, err := storage.NewRuleRepository(app.db).ListByProject(app.project.ID)
	if err != nil {
		fatal("%v", err)
	}

	if jsonOutput() {
		printJSON(ruleRows)
		return
	}
	if len(ruleRows) == 0 {
		fmt.Println("No rules defined")
		return
	}
	for _, r := range ruleRows {
		state := "active"
		if !r.IsActive {
			state = "inactive"
		}
		fmt.Printf("%-10s %-20s %s\n", state, r.RuleType, r.Name)
	}
}
