package cmds

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
	"github.com/go-go-golems/gaia/pkg/toolbox"
)

func NewToolsCommand() *cobra.Command {
	var schema bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.NewSettingsFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			// listing needs no working credentials
			s = s.Clone()
			if s.API.OpenAIAPIKey == "" {
				s.API.OpenAIAPIKey = "unset"
			}
			if s.API.TavilyAPIKey == "" {
				s.API.TavilyAPIKey = "unset"
			}
			registry, err := toolbox.NewDefaultRegistry(toolbox.Dependencies{Settings: s})
			if err != nil {
				return err
			}

			if schema {
				return printSchemas(cmd.OutOrStdout(), registry.Describe())
			}
			printTools(cmd.OutOrStdout(), registry.Describe())
			return nil
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "Print the JSON schema of every tool")
	return cmd
}

func printTools(w io.Writer, specs []tools.ToolSpec) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range specs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Description)
	}
	_ = tw.Flush()
}

func printSchemas(w io.Writer, specs []tools.ToolSpec) error {
	type entry struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Parameters  interface{} `json:"parameters"`
	}
	out := make([]entry, 0, len(specs))
	for _, s := range specs {
		out = append(out, entry{Name: s.Name, Description: s.Description, Parameters: s.Schema()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
