package dynamo

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	gsi1 = "GSI1"

	// Every store call is bounded; a timeout surfaces as a retryable failure
	// to the webhook provider.
	callTimeout = 30 * time.Second

	// Fixed-width so the GSI sort key orders lexicographically.
	sortableTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

type DB struct {
	dynamoClient *dynamodb.Client
	tableName    string
}

func NewDB(dynamoClient *dynamodb.Client, tableName string) *DB {
	return &DB{
		dynamoClient: dynamoClient,
		tableName:    tableName,
	}
}

func exprMustBuild(builder expression.Builder) expression.Expression {
	expr, err := builder.Build()
	if err != nil {
		panic("failed to build dynamo expression")
	}

	return expr
}
