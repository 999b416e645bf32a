package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-go-golems/gaia/cmd/gaia/cmds"
	"github.com/go-go-golems/gaia/pkg/steps/ai/settings"
)

var rootCmd = &cobra.Command{
	Use:           "gaia",
	Short:         "gaia answers questions with a language model and a set of research tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		return initLogger()
	},
}

func initLogger() error {
	logLevel := viper.GetString("log-level")
	if viper.GetBool("verbose") && logLevel != "trace" {
		logLevel = "debug"
	}
	return InitLogger(&logConfig{
		Level:      logLevel,
		LogFile:    viper.GetString("log-file"),
		LogFormat:  viper.GetString("log-format"),
		WithCaller: viper.GetBool("with-caller"),
	})
}

type logConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
}

func initConfig() error {
	v := viper.GetViper()
	if err := settings.BindEnvironment(v); err != nil {
		return err
	}

	if configPath := v.GetString("config"); configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gaia")
		v.AddConfigPath("/etc/gaia")

		xdgConfigPath, err := os.UserConfigDir()
		if err == nil {
			v.AddConfigPath(xdgConfigPath + "/gaia")
		}
	}

	err := v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// no config file, environment and flags only
	} else if err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" && v.GetString("config") == "" {
		v.Set("config", used)
	}

	log.Debug().Str("config", v.ConfigFileUsed()).Msg("Loaded configuration")
	return nil
}

func InitLogger(config *logConfig) error {
	if config.WithCaller {
		log.Logger = log.With().Caller().Logger()
	}
	// default is json
	var logWriter io.Writer
	if config.LogFormat == "text" {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	} else {
		logWriter = os.Stderr
	}

	if config.LogFile != "" {
		logWriter = io.MultiWriter(
			logWriter,
			zerolog.ConsoleWriter{
				NoColor: true,
				Out: &lumberjack.Logger{
					Filename:   config.LogFile,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, //days
				},
			})
	}

	log.Logger = log.Output(logWriter)

	switch config.Level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	}

	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to the configuration file")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error, fatal)")
	pf.String("log-format", "text", "Log format (json, text)")
	pf.String("log-file", "", "Also write logs to this rotated file")
	pf.Bool("with-caller", false, "Log caller")
	pf.BoolP("verbose", "v", false, "Print tool activity and debug logs")
	pf.String("model", "", "Chat model")
	pf.Int("max-iterations", 0, "Maximum model calls per question")

	for key, flag := range map[string]string{
		"config":              "config",
		"log-level":           "log-level",
		"log-format":          "log-format",
		"log-file":            "log-file",
		"with-caller":         "with-caller",
		"verbose":             "verbose",
		"chat.model":          "model",
		"loop.max-iterations": "max-iterations",
	} {
		cobra.CheckErr(viper.BindPFlag(key, pf.Lookup(flag)))
	}

	rootCmd.AddCommand(
		cmds.NewChatCommand(),
		cmds.NewAskCommand(),
		cmds.NewToolsCommand(),
		cmds.NewVersionCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = io.WriteString(os.Stderr, "Error: "+err.Error()+"\n")
		os.Exit(1)
	}
}
