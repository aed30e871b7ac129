package cmd

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/config"
	"github.com/relloyd/totes/logger"
)

func mockResources(t *testing.T) func() {
	orig := newResources
	newResources = func(log logger.Logger, s *config.Settings) (actions.Resources, error) {
		return nil, nil
	}
	return func() { newResources = orig }
}

func TestSetupTwelveFactorMode(t *testing.T) {
	defer os.Unsetenv(envVarTwelveFactorMode)
	_ = os.Unsetenv(envVarTwelveFactorMode)
	setupTwelveFactorMode()
	if twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode to be false; got true")
	}
	_ = os.Setenv(envVarTwelveFactorMode, "1")
	setupTwelveFactorMode()
	if !twelveFactorMode || lambdaMode {
		t.Fatal("expected twelveFactorMode without lambdaMode")
	}
	_ = os.Setenv(envVarTwelveFactorMode, "Lambda")
	setupTwelveFactorMode()
	if !twelveFactorMode || !lambdaMode {
		t.Fatal("expected lambdaMode to be true")
	}
	_ = os.Unsetenv(envVarTwelveFactorMode)
	setupTwelveFactorMode()
}

func TestExecute12FactorMode(t *testing.T) {
	defer mockResources(t)()
	osVars := map[string]string{
		"TOTES_LOG_LEVEL":         "error",
		"TOTES_STAGE":             "transform",
		"TOTES_TABLES":            "currency,design",
		"TOTES_INSERT_BATCH_SIZE": "10",
	}
	for k, v := range osVars {
		_ = os.Setenv(k, v)
		defer os.Unsetenv(k)
	}
	// Test 1 - the stage and settings come from the environment.
	var gotStage string
	var gotCfg *actions.PipelineConfig
	run := func(ctx context.Context, cfg *actions.PipelineConfig, stage string) (*actions.StageResult, error) {
		gotStage, gotCfg = stage, cfg
		return &actions.StageResult{Stage: stage}, nil
	}
	if err := execute12FactorMode(context.Background(), run); err != nil {
		t.Fatalf("test 1 failed: expected nil error got error: %v", err)
	}
	if gotStage != "transform" {
		t.Fatalf("test 1 failed: expected stage transform; got %q", gotStage)
	}
	if len(gotCfg.Settings.Tables) != 2 || gotCfg.Settings.InsertBatchSize != 10 {
		t.Fatalf("test 1 failed: unexpected settings %+v", gotCfg.Settings)
	}
	// Test 2 - errors from the stage are returned.
	failed := errors.New("boom")
	run = func(ctx context.Context, cfg *actions.PipelineConfig, stage string) (*actions.StageResult, error) {
		return nil, failed
	}
	if err := execute12FactorMode(context.Background(), run); err != failed {
		t.Fatalf("test 2 failed: expected stage error; got %v", err)
	}
	// Test 3 - invalid stage.
	_ = os.Setenv("TOTES_STAGE", "backup")
	if err := execute12FactorMode(context.Background(), run); err == nil {
		t.Fatal("test 3 failed: expected error for invalid stage")
	}
}
