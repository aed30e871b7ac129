package actions

import (
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/rdbms/shared"
)

// Resources opens the buckets and databases used by the pipeline stages.
type Resources interface {
	// Store returns a client for the bucket of the given role, e.g. constants.RoleIngestionBucket.
	Store(role string) (s3.BasicClient, error)
	// OpenDatabase connects to the database of the given credentials role, e.g. constants.RoleWarehouse.
	OpenDatabase(role string) (shared.Connector, error)
}
