package s3

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// MissingBucketError is returned when no bucket exists for a pipeline role.
// It is fatal to the invocation.
type MissingBucketError struct {
	Role    string
	Message string
}

func (e *MissingBucketError) Error() string {
	return fmt.Sprintf("missing bucket for %v: %v", e.Role, e.Message)
}

// FindBucketByPrefix returns the name of the first bucket, in lexical order, whose name starts with namePrefix.
// Terraform appends a generated suffix to bucket names so only the prefix is stable.
func FindBucketByPrefix(api s3iface.S3API, role string, namePrefix string) (string, error) {
	out, err := api.ListBuckets(&s3.ListBucketsInput{})
	if err != nil {
		return "", fmt.Errorf("error listing buckets while looking for %v: %w", role, err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if n := aws.StringValue(b.Name); strings.HasPrefix(n, namePrefix) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "", &MissingBucketError{
			Role:    role,
			Message: fmt.Sprintf("no bucket found with name prefix %q", namePrefix),
		}
	}
	sort.Strings(names)
	return names[0], nil
}
