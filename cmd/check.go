package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homewatt/homewatt/app"
	"github.com/homewatt/homewatt/config"
	"github.com/homewatt/homewatt/core/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single evaluation cycle and print the decisions",
	RunE:  check,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func check(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	st, decisions, err := svc.Evaluate(ctx)
	if err != nil {
		return err
	}

	type decisionOut struct {
		Kind    string `json:"kind"`
		Message string `json:"message,omitempty"`
		Notify  bool   `json:"notify"`
	}
	ds := make([]decisionOut, len(decisions))
	for i, d := range decisions {
		ds[i] = decisionOut{Kind: d.Kind.String(), Message: d.Message, Notify: d.Notify}
	}
	out := struct {
		State     model.SystemState `json:"state"`
		Decisions []decisionOut     `json:"decisions"`
	}{State: st, Decisions: ds}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
