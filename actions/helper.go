package actions

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
	"github.com/relloyd/totes/aws/secrets"
	"github.com/relloyd/totes/logger"
)

const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// debugLogCredentials dumps credentials to the log for debugging.
func debugLogCredentials(log logger.Logger, c *secrets.Credentials) {
	if c == nil {
		log.Debug("nil pointer supplied for credentials")
		return
	}
	log.Debug("role=", c.Role)
	log.Debug("hostname=", c.Hostname)
	log.Debug("port=", c.Port)
	log.Debug("database=", c.Database())
	log.Debug("username=", c.Username)
	log.Debug("password exists =", c.Password != "") // don't log password!
}

// WriteOutput renders i to w as JSON or YAML.
func WriteOutput(w io.Writer, i interface{}, format string) error {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case OutputFormatJSON:
	case OutputFormatYAML:
		if j, err = yaml.JSONToYAML(j); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	_, err = fmt.Fprintln(w, string(j))
	return err
}
