package conversation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrettyPrinter renders a conversation history as role-tagged text.
type PrettyPrinter struct {
	IncludeIDs        bool
	IncludeToolDetail bool
	IndentSpaces      int
	MaxTextLines      int // 0 => unlimited
}

// PrintOption configures a PrettyPrinter.
type PrintOption func(*PrettyPrinter)

// WithIDs toggles inclusion of message IDs.
func WithIDs(include bool) PrintOption { return func(p *PrettyPrinter) { p.IncludeIDs = include } }

// WithToolDetail toggles inclusion of tool arguments and results.
func WithToolDetail(include bool) PrintOption {
	return func(p *PrettyPrinter) { p.IncludeToolDetail = include }
}

// WithIndent sets the number of spaces used for indentation.
func WithIndent(spaces int) PrintOption { return func(p *PrettyPrinter) { p.IndentSpaces = spaces } }

// WithMaxTextLines limits how many lines of message text are printed.
func WithMaxTextLines(n int) PrintOption { return func(p *PrettyPrinter) { p.MaxTextLines = n } }

func NewPrettyPrinter(opts ...PrintOption) *PrettyPrinter {
	p := &PrettyPrinter{IncludeToolDetail: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fprint prints msgs using an ephemeral PrettyPrinter.
func Fprint(w io.Writer, msgs []Message, opts ...PrintOption) {
	NewPrettyPrinter(opts...).Fprint(w, msgs)
}

func (p *PrettyPrinter) Fprint(w io.Writer, msgs []Message) {
	pad := strings.Repeat(" ", p.IndentSpaces)
	for i, m := range msgs {
		prefix := pad
		if p.IncludeIDs && m.ID != "" {
			prefix = fmt.Sprintf("%s[%02d] id=%s ", pad, i, m.ID)
		}

		switch m.Role {
		case RoleSystem, RoleUser:
			p.fprintText(w, prefix+string(m.Role)+":", m.Content)
			for _, part := range m.Parts {
				if part.Kind != PartKindText {
					fmt.Fprintf(w, "%s  %s: %s%s\n", pad, part.Kind, part.Path, part.URL)
				}
			}
		case RoleAssistant:
			if m.Content != "" {
				p.fprintText(w, prefix+"assistant:", m.Content)
			}
			for _, c := range m.ToolCalls {
				if p.IncludeToolDetail {
					fmt.Fprintf(w, "%stool_call: name=%s id=%s\n", prefix, c.Name, c.ID)
					if len(c.Arguments) > 0 {
						fmt.Fprintf(w, "%s  args: %s\n", pad, toOneLineJSON(c.Arguments))
					}
				} else {
					fmt.Fprintf(w, "%stool_call: %s\n", prefix, c.Name)
				}
			}
		case RoleTool:
			status := "ok"
			if m.Failure != nil {
				status = m.Failure.Kind
			}
			fmt.Fprintf(w, "%stool_result: name=%s id=%s status=%s\n", prefix, m.ToolName, m.ToolCallID, status)
			if p.IncludeToolDetail {
				p.fprintText(w, pad+"  result:", m.Content)
			}
		}
	}
}

func (p *PrettyPrinter) fprintText(w io.Writer, head string, text string) {
	if p.MaxTextLines > 0 {
		lines := strings.Split(text, "\n")
		if len(lines) > p.MaxTextLines {
			text = strings.Join(lines[:p.MaxTextLines], "\n") + " ..."
		}
	}
	fmt.Fprintf(w, "%s %s\n", head, text)
}

func toOneLineJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	out := strings.ReplaceAll(string(b), "\n", " ")
	return strings.ReplaceAll(out, "\t", " ")
}
