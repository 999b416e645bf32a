package cmds

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/events"
	"github.com/go-go-golems/gaia/pkg/inference/engine"
	"github.com/go-go-golems/gaia/pkg/inference/fixtures"
	"github.com/go-go-golems/gaia/pkg/inference/toolloop"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
	"github.com/go-go-golems/gaia/pkg/steps/ai/openai"
	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
	"github.com/go-go-golems/gaia/pkg/toolbox"
	"github.com/go-go-golems/gaia/pkg/toolbox/storage"
)

const eventTopic = "gaia"

type SessionOptions struct {
	// Script replays a YAML fixture instead of calling the model.
	Script  string
	Verbose bool
	// Events receives tool activity; nil disables it.
	Events io.Writer
}

// Session holds everything one interactive or one-shot conversation needs.
type Session struct {
	Settings *settings.Settings
	Registry *tools.Registry
	Loop     *toolloop.Loop
	State    *conversation.State
	Storage  storage.Storage

	router *events.EventRouter
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(ctx context.Context, v *viper.Viper, opts SessionOptions) (*Session, error) {
	s, err := settings.NewSettingsFromViper(v)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	store := storage.NewLocalStorage("")
	registry, err := toolbox.NewDefaultRegistry(toolbox.Dependencies{
		Settings: s,
		Storage:  store,
	})
	if err != nil {
		return nil, err
	}

	var backend engine.Backend
	if opts.Script != "" {
		backend, err = fixtures.LoadScript(opts.Script)
		if err != nil {
			return nil, err
		}
	} else {
		client, err := openai.NewClient(s.API, s.Client)
		if err != nil {
			return nil, err
		}
		backend = openai.NewBackend(client, s.Chat)
	}

	loop := toolloop.New(
		toolloop.WithBackend(backend),
		toolloop.WithRegistry(registry),
		toolloop.WithLoopConfig(toolloop.DefaultLoopConfig().
			WithMaxIterations(s.Loop.MaxIterations).
			WithSystemPrompt(s.Chat.SystemPrompt)),
		toolloop.WithToolConfig(tools.DefaultToolConfig().
			WithMaxParallelTools(s.Loop.MaxParallelTools).
			WithExecutionTimeout(s.Loop.ToolTimeout)),
		toolloop.WithSnapshotHook(func(ctx context.Context, st *conversation.State, phase string) {
			log.Trace().Str("phase", phase).Int("messages", st.Len()).Msg("conversation snapshot")
		}),
	)

	sess := &Session{
		Settings: s,
		Registry: registry,
		Loop:     loop,
		State:    conversation.NewState(),
		Storage:  store,
		ctx:      ctx,
	}

	if opts.Events != nil {
		if err := sess.startEvents(ctx, opts.Events, opts.Verbose); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (s *Session) startEvents(ctx context.Context, w io.Writer, verbose bool) error {
	router, err := events.NewEventRouter(events.WithVerbose(verbose))
	if err != nil {
		return errors.Wrap(err, "could not create event router")
	}
	router.AddHandler("step-printer", eventTopic, events.StepPrinterFunc(w, verbose))

	runCtx, cancel := context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := router.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("event router stopped")
		}
	}()
	<-router.Running()

	s.router = router
	s.cancel = cancel
	s.ctx = events.WithEventSinks(ctx, router.Sink(eventTopic))
	return nil
}

func (s *Session) Close() {
	if s.router == nil {
		return
	}
	_ = s.router.Close()
	s.cancel()
	<-s.done
}

// Upload copies path into the upload directory and returns the stored path.
func (s *Session) Upload(path string) (string, error) {
	return storage.CopyFile(s.ctx, s.Storage, path, s.Settings.Upload.Dir)
}

// Ask appends question, plus one file part per uploaded file, and runs the loop.
func (s *Session) Ask(ctx context.Context, question string, uploads ...string) (*conversation.Message, error) {
	parts := make([]conversation.Part, 0, len(uploads))
	for _, u := range uploads {
		stored, err := s.Upload(u)
		if err != nil {
			return nil, err
		}
		parts = append(parts, filePart(stored))
	}
	s.State.Append(conversation.NewUserMessage(question, parts...))
	return s.Loop.Run(s.withSinks(ctx), s.State)
}

// AnnounceUpload stores path and tells the model where it is.
func (s *Session) AnnounceUpload(path string) (string, error) {
	stored, err := s.Upload(path)
	if err != nil {
		return "", err
	}
	s.State.Append(conversation.NewUserMessage("File uploaded in path: " + stored))
	return stored, nil
}

func (s *Session) withSinks(ctx context.Context) context.Context {
	if sinks := events.GetEventSinks(s.ctx); len(sinks) > 0 {
		return events.WithEventSinks(ctx, sinks...)
	}
	return ctx
}

// filePart references an upload by path; the model reads it through a tool.
func filePart(path string) conversation.Part {
	return conversation.Part{
		Kind:     conversation.PartKindFile,
		Path:     path,
		MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isattyTerminal(f.Fd())
}
