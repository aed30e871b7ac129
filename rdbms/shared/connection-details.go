package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relloyd/totes/constants"
	"github.com/xo/dburl"
)

// ConnectionDetails holds credentials for a logical database connection.
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"database type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"database logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// NewDsnConnectionDetails returns ConnectionDetails holding only a DSN.
func NewDsnConnectionDetails(connectionType string, logicalName string, dsn string) ConnectionDetails {
	return ConnectionDetails{
		Type:        connectionType,
		LogicalName: logicalName,
		Data:        map[string]string{DefaultDsnConnectionKeyNames.Dsn: dsn},
	}
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := make([]string, 0, len(c.Data)+1)
	x = append(x, fmt.Sprintf("  type = %v", c.Type))
	if v, ok := c.Data[DefaultDsnConnectionKeyNames.Dsn]; ok { // if there's a DSN...
		x = append(x, fmt.Sprintf("  dsn = %v", redactDsn(c.Type, v)))
	} else { // else print the map in key order...
		keys := make([]string, 0, len(c.Data))
		for k := range c.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := c.Data[k]
			if k == "password" {
				v = "xxxxx"
			}
			x = append(x, fmt.Sprintf("  %v = %v", k, v))
		}
	}
	return strings.Join(x, "\n")
}

// GetBindStyle returns the placeholder syntax used by the driver for this connection type.
func (c ConnectionDetails) GetBindStyle() BindStyle {
	switch c.Type {
	case constants.ConnectionTypeSqlServer:
		return BindStyleAtP
	case constants.ConnectionTypeSnowflake:
		return BindStyleQuestion
	default:
		return BindStyleDollar
	}
}

func redactDsn(connectionType string, dsn string) string {
	if connectionType == constants.ConnectionTypeSnowflake {
		if d, err := SnowflakeRedactDSN(dsn); err == nil {
			return d
		}
		return "<unparseable snowflake dsn>"
	}
	u, err := dburl.Parse(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	return u.Redacted()
}
