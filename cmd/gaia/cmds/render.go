package cmds

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gaia/pkg/conversation"
)

func isattyTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderAnswer prints markdown through glamour on a terminal and verbatim
// everywhere else.
func renderAnswer(w io.Writer, msg *conversation.Message) {
	if msg == nil {
		return
	}
	text := msg.Content
	if isTerminal(w) {
		out, err := glamour.Render(text, "dark")
		if err == nil {
			_, _ = fmt.Fprint(w, out)
			return
		}
		log.Debug().Err(err).Msg("could not render markdown")
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(text, "\n"))
}
