package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/totes/constants"
)

// GetEnvVar fetches OS environment variable.
// If the variable is not set it returns empty string.
// It also returns an error if there is a missing value AND mandatory == true.
func GetEnvVar(k string, mandatory bool) (string, error) {
	if value := os.Getenv(k); value != "" {
		return value, nil
	} else if mandatory {
		return "", fmt.Errorf("environment variable %v is not set", k)
	}
	return "", nil
}

// GetEnvVarName converts name into an environment variable using EnvVarPrefix and the name converted to upper
// with dashes converted to underscores all separated by underscores.
// e.g. "ingestion-bucket" becomes TOTES_INGESTION_BUCKET.
func GetEnvVarName(name string) string {
	n := strings.TrimSpace(strings.ToUpper(name))
	n = strings.ReplaceAll(n, "-", "_")
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}

// GetCredentialsEnvVarName returns the variable that may hold a JSON credentials document for the role.
func GetCredentialsEnvVarName(role string) string {
	return GetEnvVarName(role + "_CREDENTIALS")
}
