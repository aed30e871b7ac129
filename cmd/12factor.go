package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/totes/actions"
	"github.com/relloyd/totes/config"
	c "github.com/relloyd/totes/constants"
	"github.com/rs/xid"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set before Execute decides how to run.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == "lambda"
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if os env var envVarTwelveFactorMode is "lambda"
)

// stageRunnerFunc matches actions.RunStage.
type stageRunnerFunc func(ctx context.Context, cfg *actions.PipelineConfig, stage string) (*actions.StageResult, error)

// execute12FactorMode runs the stage named by TOTES_STAGE using settings from the environment only.
func execute12FactorMode(ctx context.Context, run stageRunnerFunc) error {
	s, err := config.LoadSettings(nil)
	if err != nil {
		fmt.Println("Error: ", err)
		return err
	}
	log := newLogger(s).WithRunID(xid.New().String())
	log.Info("totes is running in 12 Factor mode...")
	for _, k := range config.SettingKeys() { // for each setting...
		name := flagNameToEnvVar(k)
		if v, ok := os.LookupEnv(name); ok {
			log.Debug(name, "=", v)
		}
	}
	res, err := newResources(log, s)
	if err != nil {
		log.Error("Error: ", err)
		return err
	}
	_, err = run(ctx, &actions.PipelineConfig{Log: log, Settings: s, Resources: res}, s.Stage)
	return err
}
