package actions

import (
	"fmt"
	"io"

	"github.com/relloyd/totes/config"
	"github.com/relloyd/totes/helper"
)

type ConfigSetConfig struct {
	ConfigFile *config.File `errorTxt:"config-file" mandatory:"yes"`
	Key        string       `errorTxt:"key" mandatory:"yes"`
	Value      string       `errorTxt:"value" mandatory:"yes"`
	Force      bool
	Out        io.Writer `errorTxt:"output" mandatory:"yes"`
}

type ConfigRemoveConfig struct {
	ConfigFile *config.File `errorTxt:"config-file" mandatory:"yes"`
	Key        string       `errorTxt:"key" mandatory:"yes"`
	Out        io.Writer    `errorTxt:"output" mandatory:"yes"`
}

// RunConfigSet adds key+value to the given config file.
// Only keys understood by config.Settings are accepted.
// If cfg.Force is not set then it returns an error when the key exists.
func RunConfigSet(cfg *ConfigSetConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if !config.IsSettingKey(cfg.Key) {
		return fmt.Errorf("unknown setting %q: expected one of %v", cfg.Key, config.SettingKeys())
	}
	var val string
	if err := cfg.ConfigFile.Get(cfg.Key, &val); err == nil && !cfg.Force { // if key exists and we're not allowed to overwrite...
		return fmt.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	} else if err != nil { // else there is an error...
		_, keyNotFoundErr := err.(config.KeyNotFoundError)
		_, fileNotFoundErr := err.(config.FileNotFoundError)
		if !(keyNotFoundErr || fileNotFoundErr) { // if there was an unexpected error...
			return err
		}
	}
	if err := cfg.ConfigFile.Set(cfg.Key, cfg.Value); err != nil {
		return fmt.Errorf("error writing config file after adding: %w", err)
	}
	_, err := fmt.Fprintf(cfg.Out, "Key %q added to %q\n", cfg.Key, cfg.ConfigFile.FullPath)
	return err
}

// RunConfigRemove removes a key from the given config file.
func RunConfigRemove(cfg *ConfigRemoveConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.Key); err != nil {
		return fmt.Errorf("unable to delete key %q from config: %w", cfg.Key, err)
	}
	_, err := fmt.Fprintf(cfg.Out, "Key %q removed\n", cfg.Key)
	return err
}

// RunConfigList prints every key=value pair in f.
func RunConfigList(f *config.File, out io.Writer) error {
	keys, err := f.GetAllKeys()
	if err != nil {
		return err
	}
	var val string
	for _, k := range keys { // for each key...
		if err = f.Get(k, &val); err != nil {
			return err
		}
		if _, err = fmt.Fprintf(out, "%v=%v\n", k, val); err != nil {
			return err
		}
	}
	return nil
}
