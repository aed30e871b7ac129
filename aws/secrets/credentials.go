package secrets

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/rdbms"
	"github.com/relloyd/totes/rdbms/shared"
)

// requiredKeys is the exact set of keys each role's secret must hold.
var requiredKeys = map[string][]string{
	constants.RoleIngestion: {"db", "hostname", "password", "port", "username"},
	constants.RoleWarehouse: {"hostname", "password", "port", "schema", "username"},
}

// Credentials are the connection details held in a secret.
type Credentials struct {
	Role     string `mapstructure:"-"`
	Hostname string `mapstructure:"hostname"`
	Port     string `mapstructure:"port"`
	DB       string `mapstructure:"db"`
	Schema   string `mapstructure:"schema"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Database returns the database name. The warehouse secret names it "schema".
func (c *Credentials) Database() string {
	if c.DB != "" {
		return c.DB
	}
	return c.Schema
}

func (c *Credentials) String() string {
	return fmt.Sprintf("%v@%v:%v/%v", c.Username, c.Hostname, c.Port, c.Database())
}

// ToConnectionDetails builds a DSN for the given database type from the credentials.
func (c *Credentials) ToConnectionDetails(dbType string) (shared.ConnectionDetails, error) {
	var dsn string
	switch dbType {
	case constants.ConnectionTypePostgres, constants.ConnectionTypeMockPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.Username, c.Password),
			Host:   net.JoinHostPort(c.Hostname, c.Port),
			Path:   "/" + c.Database(),
		}
		dsn = u.String()
	case constants.ConnectionTypeSqlServer:
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     net.JoinHostPort(c.Hostname, c.Port),
			RawQuery: url.Values{"database": []string{c.Database()}}.Encode(),
		}
		dsn = u.String()
	case constants.ConnectionTypeSnowflake:
		var err error
		dsn, err = rdbms.SnowflakeGetDSN(&rdbms.SnowflakeConnectionDetails{
			Account:  c.Hostname,
			DBName:   c.Database(),
			Schema:   "PUBLIC",
			User:     c.Username,
			Password: c.Password,
		})
		if err != nil {
			return shared.ConnectionDetails{}, err
		}
	default:
		return shared.ConnectionDetails{}, fmt.Errorf("unsupported database type %q for %v credentials", dbType, c.Role)
	}
	return shared.NewDsnConnectionDetails(dbType, c.Role, dsn), nil
}

// ParseCredentials decodes a JSON secret for role, enforcing the role's exact key set.
func ParseCredentials(role string, secret []byte) (*Credentials, error) {
	expected, ok := requiredKeys[role]
	if !ok {
		return nil, &InvalidCredentialsError{Role: role, Message: "unknown role"}
	}
	m := make(map[string]interface{})
	if err := json.Unmarshal(secret, &m); err != nil {
		return nil, &InvalidCredentialsError{Role: role, Message: fmt.Sprintf("secret is not a JSON object: %v", err)}
	}
	got := make([]string, 0, len(m))
	for k := range m {
		got = append(got, k)
	}
	sort.Strings(got)
	if !sameKeys(expected, got) {
		return nil, newKeySetError(role, expected, got)
	}
	c := &Credentials{Role: role}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true, // port may be a JSON number.
		Result:           c,
	})
	if err != nil {
		return nil, err
	}
	if err = d.Decode(m); err != nil {
		return nil, &InvalidCredentialsError{Role: role, Message: err.Error()}
	}
	return c, nil
}

func sameKeys(expected, got []string) bool {
	if len(expected) != len(got) {
		return false
	}
	for i := range expected {
		if expected[i] != got[i] {
			return false
		}
	}
	return true
}
