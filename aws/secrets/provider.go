package secrets

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
)

// Provider fetches the credentials for a role, e.g. constants.RoleIngestion.
type Provider interface {
	GetCredentials(role string) (*Credentials, error)
}

// SecretsManagerProvider reads credentials from AWS Secrets Manager.
type SecretsManagerProvider struct {
	log       logger.Logger
	api       secretsmanageriface.SecretsManagerAPI
	secretIDs map[string]string // key = role; value = secret id
}

// NewSecretsManagerProvider returns a Provider for the region where secretIDs maps role to secret id.
func NewSecretsManagerProvider(log logger.Logger, region string, secretIDs map[string]string) *SecretsManagerProvider {
	awsConfig := aws.NewConfig()
	awsConfig.Region = aws.String(region)
	sess := session.Must(session.NewSession(awsConfig))
	return NewSecretsManagerProviderWithAPI(log, secretsmanager.New(sess), secretIDs)
}

func NewSecretsManagerProviderWithAPI(log logger.Logger, api secretsmanageriface.SecretsManagerAPI, secretIDs map[string]string) *SecretsManagerProvider {
	return &SecretsManagerProvider{log: log, api: api, secretIDs: secretIDs}
}

func (p *SecretsManagerProvider) GetCredentials(role string) (*Credentials, error) {
	id, ok := p.secretIDs[role]
	if !ok || id == "" {
		return nil, &InvalidCredentialsError{Role: role, Message: "no secret id configured"}
	}
	p.log.Debug("fetching secret ", id, " for role ", role)
	out, err := p.api.GetSecretValue(&secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return nil, &InvalidCredentialsError{Role: role, Message: fmt.Sprintf("secret %q not found", id)}
		}
		return nil, fmt.Errorf("error fetching secret %q: %w", id, err)
	}
	if out.SecretString == nil {
		return nil, &InvalidCredentialsError{Role: role, Message: fmt.Sprintf("secret %q has no string value", id)}
	}
	return ParseCredentials(role, []byte(aws.StringValue(out.SecretString)))
}

// EnvProvider reads a JSON credentials document from TOTES_<ROLE>_CREDENTIALS.
// It is used for local runs against databases that aren't registered in Secrets Manager.
type EnvProvider struct{}

func (EnvProvider) GetCredentials(role string) (*Credentials, error) {
	name := helper.GetCredentialsEnvVarName(role)
	v, err := helper.GetEnvVar(name, true)
	if err != nil {
		return nil, &InvalidCredentialsError{Role: role, Message: err.Error()}
	}
	return ParseCredentials(role, []byte(v))
}
