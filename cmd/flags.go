package cmd

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/relloyd/totes/config"
	"github.com/relloyd/totes/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
	setting   string // config.Settings key when it differs from the flag name
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug | trace\""},
	"print-stack": cliFlag{name: "print-stack",
		desc: "Print a stack dump if there is a panic", setting: "STACK_DUMP"},
	"region": cliFlag{name: "region", shortHand: "R",
		desc: "AWS region of the buckets and secrets"},
	"ingestion-bucket": cliFlag{name: "ingestion-bucket", shortHand: "i",
		desc: "The ingestion bucket as [s3://]<bucket>[/<prefix>]. Leave blank to find the first\n" +
			"bucket whose name starts with the ingestion bucket prefix"},
	"processed-bucket": cliFlag{name: "processed-bucket", shortHand: "p",
		desc: "The processed bucket as [s3://]<bucket>[/<prefix>]. Leave blank to find the first\n" +
			"bucket whose name starts with the processed bucket prefix"},
	"tables": cliFlag{name: "tables", shortHand: "t",
		desc: "CSV list of source tables to extract"},
	"delta-column": cliFlag{name: "delta-column", shortHand: "d",
		desc: "Source column compared with the ingestion bucket watermark to find changed rows"},
	"warehouse-schema": cliFlag{name: "warehouse-schema", shortHand: "s",
		desc: "Warehouse schema holding the star schema tables (omit to use the default)"},
	"descriptor-file": cliFlag{name: "descriptor-file", shortHand: "f",
		desc: "YAML file of table descriptors that override or add to the built-in star schema"},
	"insert-batch-size": cliFlag{name: "insert-batch-size", shortHand: "B",
		desc: "Maximum number of rows combined into a single INSERT statement"},
	"credentials-source": cliFlag{name: "credentials-source", shortHand: "c",
		desc: "Where to read database credentials: \"secretsmanager | env\""},
	"listen-addr": cliFlag{name: "listen-addr", shortHand: "a",
		desc: "Address for the HTTP server to listen on"},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"yaml\" or \"json\" to print results"},
	"key": cliFlag{name: "key", shortHand: "k",
		desc: "The setting to change, e.g. insert-batch-size"},
	"value": cliFlag{name: "value", shortHand: "v",
		desc: "The value to set"},
	"force": cliFlag{name: "force", shortHand: "F",
		desc: "Overwrite existing values"},
}

// pipelineFlags are the setting flags accepted by commands that touch buckets or databases.
var pipelineFlags = []string{
	"region",
	"ingestion-bucket",
	"processed-bucket",
	"tables",
	"delta-column",
	"warehouse-schema",
	"descriptor-file",
	"insert-batch-size",
	"credentials-source",
}

// addFlag adds a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	f.addFlagToSet(c.Flags(), targetVar, name, defaultValue, desc2)
	if required { // if the flag is required...
		_ = c.MarkFlagRequired(name)
	}
}

// addSettingFlags adds string flags that override config.Settings values of the same name.
// Their defaults come from the environment or config file, so none is set here.
func (f *cliFlags) addSettingFlags(c *cobra.Command, names ...string) {
	for _, name := range names {
		sw := f.getCliFlag(name)
		c.Flags().StringP(sw.name, sw.shortHand, "", sw.desc)
	}
}

func (f *cliFlags) addFlagToSet(fs *pflag.FlagSet, targetVar interface{}, name string, defaultValue string, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name)
	desc := sw.desc + desc2 // create the full flag description for use below
	switch p := targetVar.(type) {
	case *string:
		fs.StringVarP(p, sw.name, sw.shortHand, defaultValue, desc)
	case *bool:
		fs.BoolVarP(p, sw.name, sw.shortHand, strings.ToLower(defaultValue) == "true", desc)
	default:
		panic("Error: unhandled CLI flag target value type")
	}
}

// getCliFlag fetches the registered flag with the given name.
func (f *cliFlags) getCliFlag(name string) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	return s
}

// applySettingFlags exports every flag that was set on the command line and names a setting
// as its TOTES_* environment variable, so flags take precedence when settings are loaded.
func applySettingFlags(fs *pflag.FlagSet) (err error) {
	fs.Visit(func(fl *pflag.Flag) {
		if err != nil {
			return
		}
		name := fl.Name
		if sw, ok := switches[name]; ok && sw.setting != "" {
			name = sw.setting
		}
		if !config.IsSettingKey(name) { // if the flag is not a setting...
			return
		}
		err = os.Setenv(flagNameToEnvVar(name), fl.Value.String())
	})
	return err
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
