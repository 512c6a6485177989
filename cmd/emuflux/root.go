package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/emuflux/model"
)

// envModel names the environment variable holding the default model path.
const envModel = "EMUFLUX_MODEL"

// globals are the persistent flags shared by every command.
type globals struct {
	modelPath string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "emuflux",
		Short:         "EMU-based metabolic flux analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.modelPath, "model", "m", os.Getenv(envModel),
		"model file (default $"+envModel+")")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "text or json")

	root.AddCommand(newNetworksCmd(g), newSimulateCmd(g), newFitCmd(g), newRunsCmd())

	return root
}

// logger builds the slog logger on the command's error stream.
func (g *globals) logger(cmd *cobra.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(g.logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), opts)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q", g.logFormat)
	}
}

// problem loads and compiles the model named by --model.
func (g *globals) problem(cmd *cobra.Command) (*model.Problem, *slog.Logger, error) {
	log, err := g.logger(cmd)
	if err != nil {
		return nil, nil, err
	}
	if g.modelPath == "" {
		return nil, nil, fmt.Errorf("no model: pass --model or set %s", envModel)
	}
	f, err := model.Load(g.modelPath)
	if err != nil {
		return nil, nil, err
	}
	p, err := model.Compile(f, model.WithContext(cmd.Context()), model.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("compiling %s: %w", g.modelPath, err)
	}

	return p, log, nil
}
