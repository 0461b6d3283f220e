package cmd

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/conneroisu/assetflow/internal/build"
	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"list", "l"},
	Short:   "List tasks with their source globs and destinations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, env, err := setup(nil)
		if err != nil {
			return err
		}
		return printTasks(cmd.OutOrStdout(), p, env.Registry, env.Config.Build.Output)
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

func printTasks(w io.Writer, p *build.Pipeline, reg *registry.Registry, output string) error {
	name := lipgloss.NewStyle().Bold(true).Width(9)
	dim := lipgloss.NewStyle().Faint(true)

	for _, task := range p.Tasks() {
		var from, to string
		if task.Entry == "" {
			from, to = "-", "removes "+output
		} else {
			entry, ok := reg.Get(task.Entry)
			if !ok {
				continue
			}
			from = strings.Join(entry.Src, ", ")
			to = entry.Dest
			if task.Name == config.TaskWebP && entry.AltDest != "" {
				to = entry.AltDest
			}
			if entry.Output != "" && task.Entry != registry.Images {
				to = path.Join(to, entry.Output)
			}
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", name.Render(task.Name), from, dim.Render("-> "+to)); err != nil {
			return err
		}
	}
	return nil
}
