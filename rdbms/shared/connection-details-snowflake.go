package shared

import (
	"errors"
	"fmt"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"
)

const snowflakeScheme = "snowflake://"

// SnowflakeRedactDSN returns a printable form of a Snowflake DSN without its password.
// The prefix 'snowflake://' is optional.
func SnowflakeRedactDSN(dsn string) (string, error) {
	cfg, err := sf.ParseDSN(strings.TrimPrefix(dsn, snowflakeScheme))
	if err != nil {
		return "", err
	}
	if cfg.Account == "" {
		return "", errors.New("snowflake DSN is missing an account")
	}
	return fmt.Sprintf("%v%v:xxxxx@%v/%v/%v", snowflakeScheme, cfg.User, cfg.Account, cfg.Database, cfg.Schema), nil
}
