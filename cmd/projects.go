package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrgbiryu-cyber/maestro/pkg/config"
	"github.com/mrgbiryu-cyber/maestro/pkg/projects"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Inspect projects on the backend",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all visible projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Get()
		client := projects.NewClient(settings.Server.URL, settings.Server.Token)

		list, err := client.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range list {
			fmt.Printf("%s  %s  (%s)\n", p.ID, userStyle.Render(p.Name), p.ProjectType)
		}
		return nil
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show one project's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Get()
		client := projects.NewClient(settings.Server.URL, settings.Server.Token)

		p, err := client.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Println(userStyle.Render(p.Name) + "  (" + p.ID + ")")
		if p.Description != "" {
			fmt.Println(p.Description)
		}
		fmt.Printf("type: %s  tenant: %s  created: %s\n", p.ProjectType, p.TenantID, p.CreatedAt.Format("2006-01-02"))
		if p.AgentConfig != nil {
			fmt.Printf("workflow: %s, %d agents, entry %s\n",
				p.AgentConfig.WorkflowType, len(p.AgentConfig.Agents), p.AgentConfig.EntryAgentID)
			for _, a := range p.AgentConfig.Agents {
				fmt.Printf("  - %s (%s, %s)\n", a.AgentID, a.Role, a.Model)
			}
		}
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	rootCmd.AddCommand(projectsCmd)
}
