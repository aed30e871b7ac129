package constants

// Batch keys & storage layout.

const (
	TimeFormatBatchID           = "2006-01-02T15:04:05.000000" // fixed width so lexical order matches time order.
	TimeFormatBatchIDRegex      = "^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}\\.[0-9]{6}$"
	TimeFormatSqlLiteral        = "2006-01-02 15:04:05.000000" // used for delta predicates against the source.
	TimeFormatDate              = "2006-01-02"
	TimeFormatTime              = "15:04:05.999999"
	TimeFormatDateTime          = "2006-01-02 15:04:05.999999"
	BatchKeyDelimiter           = "/"
	BatchFileExtension          = ".csv"
	CacheKey                    = "cache.txt"
	CacheMarkerPrefix           = "_cache/"
	CompleteMarkerPrefix        = "_complete/"
	DimDateSnapshotKey          = "dim_date.csv"
	DimDateTable                = "dim_date"
	DefaultDeltaColumn          = "last_updated"
	DefaultInsertBatchSize      = 1000
	ServiceName                 = "totes"
	EnvVarPrefix                = "TOTES" // prefixed for environment variables in twelveFactorMode
	EmojiBang                   = "\U0001F4A5"
	ConnectionTypePostgres      = "postgres"
	ConnectionTypeSnowflake     = "snowflake"
	ConnectionTypeSqlServer     = "sqlserver"
	ConnectionTypeS3            = "s3"
	ConnectionTypeMockPostgres  = "mockPostgres"
	RoleIngestion               = "Ingestion"
	RoleWarehouse               = "Warehouse"
	RoleIngestionBucket         = "ingestion_bucket"
	RoleProcessedBucket         = "processed_bucket"
	DefaultIngestionBucketName  = "terrific-totes-ingestion-bucket"
	DefaultProcessedBucketName  = "terrific-totes-processed-bucket"
	DefaultIngestionSecretID    = "Ingestion_credentials"
	DefaultWarehouseSecretID    = "Warehouse_credentials"
	DefaultAwsRegion            = "eu-west-2"
	StageIngest                 = "ingest"
	StageTransform              = "transform"
	StageLoad                   = "load"
	StageAll                    = "all"
)

// SourceTables is the default list of operational tables extracted on each run.
var SourceTables = []string{
	"staff",
	"counterparty",
	"sales_order",
	"address",
	"payment",
	"purchase_order",
	"payment_type",
	"transaction",
	"currency",
	"department",
	"design",
}
