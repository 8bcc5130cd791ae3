package ssm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ReferencePrefix marks a configuration value as the name of an ssm parameter
const ReferencePrefix = "ssm:"

type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SystemManager struct {
	client ParameterGetter
}

// New create new SystemManager
// config will load secret, region from aws configure
func New(ctx context.Context) (*SystemManager, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return NewWithClient(ssm.NewFromConfig(cfg)), nil
}

func NewWithClient(client ParameterGetter) *SystemManager {
	return &SystemManager{
		client: client,
	}
}

// FindParameter find parameter in AWS SSM parameter store. Secure strings are decrypted.
func (s *SystemManager) FindParameter(ctx context.Context, parameterName string) (*ssm.GetParameterOutput, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(true),
	}

	parameter, err := s.client.GetParameter(ctx, input)
	if err != nil {
		return nil, err
	}

	return parameter, nil
}

// IsReference reports whether a value points to an ssm parameter
func IsReference(value string) bool {
	return strings.HasPrefix(value, ReferencePrefix)
}

// Resolve returns the parameter value of an ssm reference. Other values are
// returned unchanged.
func (s *SystemManager) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	name := strings.TrimPrefix(value, ReferencePrefix)
	if name == "" {
		return "", fmt.Errorf("empty ssm parameter name")
	}

	parameter, err := s.FindParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fail to get ssm parameter %s: %w", name, err)
	}

	if parameter.Parameter == nil || parameter.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %s has no value", name)
	}

	return *parameter.Parameter.Value, nil
}
