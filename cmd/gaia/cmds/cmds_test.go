package cmds

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/gaia/pkg/conversation"
)

const script = `steps:
  - tool_calls:
      - id: call_a
        name: no_such_tool
        arguments: {query: france}
  - content: The capital of France is Paris.
  - content: It is on the Seine.
`

func testViper(t *testing.T) (*viper.Viper, string) {
	t.Helper()
	dir := t.TempDir()
	v := viper.New()
	v.Set("api.openai-api-key", "sk-test")
	v.Set("api.tavily-api-key", "tvly-test")
	v.Set("upload.dir", filepath.Join(dir, "uploads"))
	p := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(p, []byte(script), 0o600))
	return v, p
}

func TestSessionAskWithScript(t *testing.T) {
	v, scriptPath := testViper(t)
	var evs bytes.Buffer
	sess, err := NewSession(context.Background(), v, SessionOptions{Script: scriptPath, Events: &evs})
	require.NoError(t, err)

	answer, err := sess.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	sess.Close()

	assert.Equal(t, "The capital of France is Paris.", answer.Content)
	msgs := sess.State.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, conversation.RoleTool, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "unknown tool: no_such_tool")
	assert.Contains(t, evs.String(), "[tool] no_such_tool done: unknown_tool")
}

func TestSessionRequiresCredentials(t *testing.T) {
	v := viper.New()
	v.Set("api.tavily-api-key", "tvly-test")
	_, err := NewSession(context.Background(), v, SessionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.openai-api-key")
}

func TestREPLCommands(t *testing.T) {
	v, scriptPath := testViper(t)
	sess, err := NewSession(context.Background(), v, SessionOptions{Script: scriptPath})
	require.NoError(t, err)
	defer sess.Close()

	upload := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(upload, []byte("hello"), 0o600))
	transcript := filepath.Join(t.TempDir(), "out.yaml")

	input := strings.Join([]string{
		"/help",
		"What is the capital of France?",
		"/upload " + upload,
		"/tokens",
		"/tools",
		"/history",
		"/save " + transcript,
		"/bogus",
		"/reset",
		"/quit",
		"never asked",
	}, "\n")
	var out bytes.Buffer
	r := &repl{sess: sess, in: strings.NewReader(input), out: &out}
	require.NoError(t, r.run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "/upload <path>")
	assert.Contains(t, s, "The capital of France is Paris.")
	assert.Contains(t, s, "File uploaded in path: "+filepath.Join(v.GetString("upload.dir"), "notes.txt"))
	assert.Contains(t, s, "tokens in 5 messages")
	assert.Contains(t, s, "download_file")
	assert.Contains(t, s, "tool_call: name=no_such_tool")
	assert.Contains(t, s, "saved 5 messages")
	assert.Contains(t, s, "unknown command /bogus")
	assert.Contains(t, s, "conversation cleared")
	assert.NotContains(t, s, "It is on the Seine.")
	assert.Equal(t, 0, sess.State.Len())

	saved, err := conversation.LoadYAML(transcript)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Len())
}

func TestPrintSchemas(t *testing.T) {
	v, scriptPath := testViper(t)
	sess, err := NewSession(context.Background(), v, SessionOptions{Script: scriptPath})
	require.NoError(t, err)
	defer sess.Close()

	var out bytes.Buffer
	require.NoError(t, printSchemas(&out, sess.Registry.Describe()))
	assert.Contains(t, out.String(), `"name": "web_search"`)
	assert.Contains(t, out.String(), `"required": [`)
}
