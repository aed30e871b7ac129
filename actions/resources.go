package actions

import (
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/aws/secrets"
	"github.com/relloyd/totes/config"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms"
	"github.com/relloyd/totes/rdbms/shared"
)

// AwsResources resolves buckets by name or prefix and database credentials from the configured provider.
type AwsResources struct {
	log         logger.Logger
	settings    *config.Settings
	api         s3iface.S3API
	credentials secrets.Provider
	mu          sync.Mutex
	stores      map[string]s3.BasicClient // key = bucket role
}

// NewAwsResources returns Resources backed by S3 and the credentials source named in settings.
func NewAwsResources(log logger.Logger, settings *config.Settings) (*AwsResources, error) {
	var p secrets.Provider
	switch settings.CredentialsSource {
	case config.CredentialsSourceSecretsManager:
		p = secrets.NewSecretsManagerProvider(log, settings.Region, map[string]string{
			constants.RoleIngestion: settings.IngestionSecretID,
			constants.RoleWarehouse: settings.WarehouseSecretID,
		})
	case config.CredentialsSourceEnv:
		p = secrets.EnvProvider{}
	default:
		return nil, fmt.Errorf("unsupported credentials source %q", settings.CredentialsSource)
	}
	return NewAwsResourcesWithAPI(log, settings, s3.NewAPI(settings.Region), p), nil
}

func NewAwsResourcesWithAPI(log logger.Logger, settings *config.Settings, api s3iface.S3API, p secrets.Provider) *AwsResources {
	return &AwsResources{
		log:         log,
		settings:    settings,
		api:         api,
		credentials: p,
		stores:      make(map[string]s3.BasicClient),
	}
}

// Store returns a client for the ingestion or processed bucket.
// An explicit bucket name in settings wins over discovery by prefix.
func (r *AwsResources) Store(role string) (s3.BasicClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.stores[role]; ok {
		return c, nil
	}
	var name, prefix string
	switch role {
	case constants.RoleIngestionBucket:
		name, prefix = r.settings.IngestionBucket, r.settings.IngestionBucketPrefix
	case constants.RoleProcessedBucket:
		name, prefix = r.settings.ProcessedBucket, r.settings.ProcessedBucketPrefix
	default:
		return nil, fmt.Errorf("unsupported bucket role %q", role)
	}
	if name == "" { // if we need to find the bucket...
		var err error
		if name, err = s3.FindBucketByPrefix(r.api, role, prefix); err != nil {
			return nil, err
		}
	}
	b, err := s3.ParseDSN(name, r.settings.Region)
	if err != nil {
		return nil, err
	}
	r.log.Info("using ", b, " for ", role)
	c := s3.NewBasicClientWithAPI(b.Name, b.Region, b.Prefix, r.api)
	r.stores[role] = c
	return c, nil
}

// OpenDatabase fetches the credentials for role and connects using the configured database type.
func (r *AwsResources) OpenDatabase(role string) (shared.Connector, error) {
	var dbType string
	switch role {
	case constants.RoleIngestion:
		dbType = r.settings.SourceType
	case constants.RoleWarehouse:
		dbType = r.settings.WarehouseType
	default:
		return nil, fmt.Errorf("unsupported database role %q", role)
	}
	c, err := r.credentials.GetCredentials(role)
	if err != nil {
		return nil, err
	}
	debugLogCredentials(r.log, c)
	cd, err := c.ToConnectionDetails(dbType)
	if err != nil {
		return nil, err
	}
	return rdbms.OpenDbConnection(r.log, cd)
}
