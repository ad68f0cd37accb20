package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const contentTypeJSON = "application/json"

// BedrockRuntimeAPI is the slice of the bedrockruntime client used here.
type BedrockRuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient invokes Anthropic models hosted on Amazon Bedrock.
type BedrockClient struct {
	Runtime BedrockRuntimeAPI
	Params  Params
}

// NewBedrockClient resolves AWS credentials from the default chain
// (environment, shared config, instance role) for region.
func NewBedrockClient(ctx context.Context, region string, p Params) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &BedrockClient{
		Runtime: bedrockruntime.NewFromConfig(awsCfg),
		Params:  p,
	}, nil
}

func (c *BedrockClient) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := encodeRequest(prompt, c.Params, false)
	if err != nil {
		return "", err
	}
	out, err := c.Runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		Body:        body,
		ModelId:     aws.String(c.Params.ModelID),
		Accept:      aws.String(contentTypeJSON),
		ContentType: aws.String(contentTypeJSON),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke %s: %w", c.Params.ModelID, err)
	}
	return decodeResponse(out.Body)
}
