package cmds

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/gaia/pkg/conversation"
)

func NewAskCommand() *cobra.Command {
	var (
		files  []string
		save   string
		script string
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("empty question")
			}

			ctx := cmd.Context()
			sess, err := NewSession(ctx, viper.GetViper(), SessionOptions{
				Script:  script,
				Verbose: viper.GetBool("verbose"),
				Events:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer sess.Close()

			answer, runErr := sess.Ask(ctx, question, files...)
			if save != "" {
				if err := conversation.SaveYAML(save, sess.State); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			renderAnswer(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Attach a file (can be repeated)")
	cmd.Flags().StringVar(&save, "save", "", "Write the transcript as YAML to this file")
	cmd.Flags().StringVar(&script, "script", "", "Replay model responses from a YAML script")
	return cmd
}
