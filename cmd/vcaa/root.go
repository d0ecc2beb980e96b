package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/governance"
	"github.com/rahul/vcaa/internal/interpreter"
	"github.com/rahul/vcaa/internal/llm"
	"github.com/rahul/vcaa/internal/navigator"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/store"
	"github.com/rahul/vcaa/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand shares once PersistentPreRunE ran.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	events  *observability.EventLogger
	out     io.Writer
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "vcaa",
		Short:         "Turn voice commands into browser action plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "config.yaml", "config file")
	root.AddCommand(
		newInterpretCommand(a),
		newPlanCommand(a),
		newCaptureCommand(a),
		newServeCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	observability.Initialize(cfg.Logging, observability.NewTermWriter(os.Stderr))
	a.logger = observability.GetLogger()
	a.events = observability.NewEventLogger(a.logger, cfg.Logging)
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) client() (llm.Client, error) {
	c, err := llm.FromConfig(a.cfg, a.events, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up llm client: %w", err)
	}
	return c, nil
}

func (a *app) interpreter(client llm.Client) *interpreter.Interpreter {
	return interpreter.New(client, entities.Extractor{}, a.events, a.logger.Named("interpreter"))
}

func (a *app) planner(client llm.Client) *navigator.Planner {
	return navigator.New(client, a.cfg.Planner, a.events, a.logger.Named("navigator"))
}

func (a *app) policy() (*governance.DefaultPolicyEngine, error) {
	return governance.FromConfig(a.cfg.Policy)
}

func (a *app) sessions() (store.Store, error) {
	o := a.cfg.Orchestrator
	if o.Store == "sqlite" {
		return store.NewSQLiteStore(o.StorePath, o.SessionTTL)
	}
	return store.NewMemoryStore(o.SessionTTL), nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
