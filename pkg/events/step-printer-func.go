package events

import (
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// StepPrinterFunc returns a watermill handler that writes a short progress
// line for every dialogue event to w. With verbose set, tool inputs and
// results are dumped as YAML.
func StepPrinterFunc(w io.Writer, verbose bool) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventError:
			_, err = fmt.Fprintf(w, "[error] %s\n", p_.ErrorString)
		case *EventToolCallExecute:
			_, err = fmt.Fprintf(w, "[tool] %s (%s)\n", p_.ToolCall.Name, p_.ToolCall.ID)
			if err == nil && verbose && p_.ToolCall.Input != "" {
				_, err = fmt.Fprintf(w, "  input: %s\n", p_.ToolCall.Input)
			}
		case *EventToolCallExecutionResult:
			status := "ok"
			if p_.ToolResult.FailureKind != "" {
				status = p_.ToolResult.FailureKind
			}
			_, err = fmt.Fprintf(w, "[tool] %s done: %s in %dms\n", p_.ToolResult.Name, status, p_.ToolResult.DurationMs)
			if err == nil && verbose {
				var v_ []byte
				v_, err = yaml.Marshal(p_.ToolResult)
				if err == nil {
					_, err = fmt.Fprintf(w, "%s\n", v_)
				}
			}
		case *EventInfo:
			_, err = fmt.Fprintf(w, "[i] %s\n", p_.Message)
		case *EventStart, *EventFinal, *EventPhase, *EventToolCall:
		}

		return err
	}
}
