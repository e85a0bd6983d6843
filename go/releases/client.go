package releases

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBAPI is the subset of the DynamoDB client API used by this package.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// testClient is set by tests to override the real DynamoDB client.
var testClient DynamoDBAPI

var initReal = sync.OnceValues(func() (DynamoDBAPI, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
})

func client() (DynamoDBAPI, error) {
	if testClient != nil {
		return testClient, nil
	}
	return initReal()
}

// SetClient overrides the DynamoDB client. Intended for testing.
func SetClient(c DynamoDBAPI) {
	testClient = c
}
