package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/inference/toolloop"
)

const chatHelp = `Commands:
  /upload <path>  copy a file into the upload directory and tell the model about it
  /reset          start a new conversation
  /save <file>    write the transcript as YAML
  /history        print the transcript
  /tokens         count the tokens of the transcript
  /tools          list the available tools
  /quit           leave`

func NewChatCommand() *cobra.Command {
	var script string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			return (&repl{sess: sess, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}).run(ctx)
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "Replay model responses from a YAML script")
	return cmd
}

type repl struct {
	sess *Session
	in   io.Reader
	out  io.Writer
}

func (r *repl) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *repl) run(ctx context.Context) error {
	r.printf("gaia chat, model %s. Type /help for commands.\n", r.sess.Settings.Chat.Model)
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		r.printf("> ")
		if !scanner.Scan() {
			r.printf("\n")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(line)
			if err != nil {
				r.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.ask(ctx, line)
	}
}

func (r *repl) ask(ctx context.Context, question string) {
	answer, err := r.sess.Ask(ctx, question)
	switch {
	case errors.Is(err, toolloop.ErrTurnLimitExceeded):
		r.printf("error: %v. The conversation is kept, ask again or /reset.\n", err)
	case err != nil:
		r.printf("error: %v\n", err)
	default:
		renderAnswer(r.out, answer)
	}
}

func (r *repl) command(line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		r.printf("%s\n", chatHelp)

	case "/reset":
		r.sess.State.Reset()
		r.printf("conversation cleared\n")

	case "/upload":
		if arg == "" {
			return false, errors.New("usage: /upload <path>")
		}
		stored, err := r.sess.AnnounceUpload(arg)
		if err != nil {
			return false, err
		}
		r.printf("File uploaded in path: %s\n", stored)

	case "/save":
		if arg == "" {
			return false, errors.New("usage: /save <file>")
		}
		if err := conversation.SaveYAML(arg, r.sess.State); err != nil {
			return false, err
		}
		r.printf("saved %d messages to %s\n", r.sess.State.Len(), arg)

	case "/history":
		conversation.Fprint(r.out, r.sess.State.Messages(), conversation.WithToolDetail(true), conversation.WithMaxTextLines(8))

	case "/tokens":
		n, err := conversation.CountTokens(r.sess.Settings.Chat.Model, r.sess.State.Messages())
		if err != nil {
			return false, err
		}
		r.printf("%d tokens in %d messages\n", n, r.sess.State.Len())

	case "/tools":
		printTools(r.out, r.sess.Registry.Describe())

	default:
		return false, errors.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}
