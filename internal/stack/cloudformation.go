// File: internal/stack/cloudformation.go
// Brief: Orchestrator backed by AWS CloudFormation.

package stack

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	pkgerrors "github.com/pkg/errors"
)

// CloudFormationAPI is the subset of the CloudFormation client the adapter uses.
type CloudFormationAPI interface {
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, opts ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, in *cloudformation.UpdateStackInput, opts ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, opts ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// CloudFormation implements Orchestrator.
type CloudFormation struct {
	client CloudFormationAPI
	log    logr.Logger
}

// NewCloudFormation builds an Orchestrator from an AWS config.
func NewCloudFormation(cfg aws.Config, log logr.Logger) *CloudFormation {
	return NewCloudFormationWithClient(cloudformation.NewFromConfig(cfg), log)
}

// NewCloudFormationWithClient wraps an existing client.
func NewCloudFormationWithClient(client CloudFormationAPI, log logr.Logger) *CloudFormation {
	return &CloudFormation{client: client, log: log}
}

func (c *CloudFormation) CreateStack(ctx context.Context, req Request) (string, error) {
	in := &cloudformation.CreateStackInput{
		StackName:    aws.String(req.StackName),
		Parameters:   toParameters(req),
		Capabilities: toCapabilities(req.Capabilities),
	}
	in.TemplateURL, in.TemplateBody = templateSource(req)
	out, err := c.client.CreateStack(ctx, in)
	if err != nil {
		if isAlreadyExists(err) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, req.StackName)
		}
		return "", pkgerrors.Wrapf(err, "create stack %s", req.StackName)
	}
	c.log.V(1).Info("create stack accepted", "stack", req.StackName)
	return aws.ToString(out.StackId), nil
}

func (c *CloudFormation) UpdateStack(ctx context.Context, req Request) (string, error) {
	in := &cloudformation.UpdateStackInput{
		StackName:    aws.String(req.StackName),
		Parameters:   toParameters(req),
		Capabilities: toCapabilities(req.Capabilities),
	}
	in.TemplateURL, in.TemplateBody = templateSource(req)
	out, err := c.client.UpdateStack(ctx, in)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "update stack %s", req.StackName)
	}
	c.log.V(1).Info("update stack accepted", "stack", req.StackName)
	return aws.ToString(out.StackId), nil
}

func (c *CloudFormation) DescribeStack(ctx context.Context, stackID string) (Status, bool, error) {
	out, err := c.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackID)})
	if err != nil {
		return Status{}, false, pkgerrors.Wrapf(err, "describe stack %s", stackID)
	}
	if len(out.Stacks) == 0 {
		return Status{}, false, nil
	}
	st := out.Stacks[0]
	return Status{Value: string(st.StackStatus), Reason: aws.ToString(st.StackStatusReason)}, true, nil
}

func templateSource(req Request) (url, body *string) {
	if req.TemplateURL != "" {
		return aws.String(req.TemplateURL), nil
	}
	return nil, aws.String(req.TemplateBody)
}

func toParameters(req Request) []types.Parameter {
	out := make([]types.Parameter, 0, len(req.Parameters))
	for _, p := range req.Parameters {
		out = append(out, types.Parameter{
			ParameterKey:   aws.String(p.Key),
			ParameterValue: aws.String(p.Value),
		})
	}
	return out
}

func toCapabilities(caps []string) []types.Capability {
	out := make([]types.Capability, 0, len(caps))
	for _, c := range caps {
		out = append(out, types.Capability(c))
	}
	return out
}

func isAlreadyExists(err error) bool {
	var exists *types.AlreadyExistsException
	if errors.As(err, &exists) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AlreadyExistsException"
}
