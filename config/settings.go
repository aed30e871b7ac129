package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/helper"
)

// Settings is the runtime configuration read from TOTES_* environment variables.
type Settings struct {
	Region                string   `default:"eu-west-2"`
	IngestionBucket       string   `split_words:"true"`
	IngestionBucketPrefix string   `default:"terrific-totes-ingestion-bucket" split_words:"true"`
	ProcessedBucket       string   `split_words:"true"`
	ProcessedBucketPrefix string   `default:"terrific-totes-processed-bucket" split_words:"true"`
	CredentialsSource     string   `default:"secretsmanager" split_words:"true"`
	IngestionSecretID     string   `default:"Ingestion_credentials" envconfig:"INGESTION_SECRET_ID"`
	WarehouseSecretID     string   `default:"Warehouse_credentials" envconfig:"WAREHOUSE_SECRET_ID"`
	SourceType            string   `default:"postgres" split_words:"true"`
	WarehouseType         string   `default:"postgres" split_words:"true"`
	WarehouseSchema       string   `split_words:"true"`
	Tables                []string `default:"staff,counterparty,sales_order,address,payment,purchase_order,payment_type,transaction,currency,department,design"`
	DeltaColumn           string   `default:"last_updated" split_words:"true"`
	DescriptorFile        string   `split_words:"true"`
	InsertBatchSize       int      `default:"1000" split_words:"true"`
	LogLevel              string   `default:"info" split_words:"true"`
	StackDump             bool     `split_words:"true"`
	Stage                 string   `default:"all"`
	TwelveFactorMode      string   `envconfig:"12FACTOR_MODE"`
	ListenAddr            string   `default:":8080" split_words:"true"`
}

const (
	CredentialsSourceSecretsManager = "secretsmanager"
	CredentialsSourceEnv            = "env"
)

// LoadSettings applies defaults from the config file then processes the environment.
func LoadSettings(f *File) (*Settings, error) {
	if f != nil {
		if err := ApplyFileDefaults(f); err != nil {
			return nil, err
		}
	}
	s := &Settings{}
	if err := envconfig.Process(constants.EnvVarPrefix, s); err != nil {
		return nil, err
	}
	s.Tables = helper.CsvToStringSliceTrimSpaces(strings.Join(s.Tables, ","))
	return s, s.Validate()
}

// Validate checks enumerated settings.
func (s *Settings) Validate() error {
	switch s.CredentialsSource {
	case CredentialsSourceSecretsManager, CredentialsSourceEnv:
	default:
		return fmt.Errorf("unsupported credentials source %q", s.CredentialsSource)
	}
	for _, t := range []string{s.SourceType, s.WarehouseType} {
		switch t {
		case constants.ConnectionTypePostgres, constants.ConnectionTypeSqlServer, constants.ConnectionTypeSnowflake:
		default:
			return fmt.Errorf("unsupported database type %q", t)
		}
	}
	switch s.Stage {
	case constants.StageIngest, constants.StageTransform, constants.StageLoad, constants.StageAll:
	default:
		return fmt.Errorf("unsupported stage %q", s.Stage)
	}
	if len(s.Tables) == 0 {
		return fmt.Errorf("no source tables configured")
	}
	return nil
}

// ApplyFileDefaults exports every key in f as TOTES_<KEY> unless that variable is already set.
func ApplyFileDefaults(f *File) error {
	keys, err := f.GetAllKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		name := constants.EnvVarPrefix + "_" + normaliseKey(k)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		var v string
		if err = f.Get(k, &v); err != nil {
			return err
		}
		if err = os.Setenv(name, v); err != nil {
			return err
		}
	}
	return nil
}

var (
	reGatherWords = regexp.MustCompile("([^A-Z]+|[A-Z]+[^A-Z]+|[A-Z]+)")
	reAcronym     = regexp.MustCompile("([A-Z]+)([A-Z][^A-Z]+)")
)

// SettingKeys returns the environment variable suffixes understood by Settings, e.g. INSERT_BATCH_SIZE.
func SettingKeys() []string {
	t := reflect.TypeOf(Settings{})
	retval := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		retval = append(retval, settingKey(t.Field(i)))
	}
	return retval
}

// IsSettingKey returns true if key names a field of Settings.
func IsSettingKey(key string) bool {
	key = normaliseKey(key)
	for _, k := range SettingKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// settingKey follows the envconfig naming rules for field f.
func settingKey(f reflect.StructField) string {
	if tag := f.Tag.Get("envconfig"); tag != "" {
		return strings.ToUpper(tag)
	}
	if f.Tag.Get("split_words") != "true" {
		return strings.ToUpper(f.Name)
	}
	words := reGatherWords.FindAllStringSubmatch(f.Name, -1)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if m := reAcronym.FindStringSubmatch(w[0]); len(m) == 3 {
			parts = append(parts, m[1], m[2])
			continue
		}
		parts = append(parts, w[0])
	}
	return strings.ToUpper(strings.Join(parts, "_"))
}
