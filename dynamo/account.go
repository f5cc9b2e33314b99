package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artistlab-studio/campus-registration/account"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ account.Repository = &DB{}

type accountDynamo struct {
	PK string
	SK string

	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

const (
	accountEntityName = "ACCOUNT"
)

func accountPK(email string) string {
	return fmt.Sprintf("%s#%s", accountEntityName, email)
}

func accountToDynamo(acc account.Account) accountDynamo {
	return accountDynamo{
		PK:        accountPK(acc.Email),
		SK:        accountEntityName,
		ID:        acc.ID,
		Email:     acc.Email,
		CreatedAt: acc.CreatedAt,
	}
}

func dynamoToAccount(dynAcc accountDynamo) account.Account {
	return account.Account{
		ID:        dynAcc.ID,
		Email:     dynAcc.Email,
		CreatedAt: dynAcc.CreatedAt,
	}
}

func (d *DB) EnsureAccount(ctx context.Context, email string) (account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: accountPK(email)},
			"SK": &types.AttributeValueMemberS{Value: accountEntityName},
		},
	})
	if err != nil {
		return account.Account{}, account.NewFailedToFetchError(fmt.Sprintf("Failed to fetch account for email %s", email), err)
	}

	if len(resp.Item) > 0 {
		var dynAcc accountDynamo
		err = attributevalue.UnmarshalMap(resp.Item, &dynAcc)
		if err != nil {
			panic(fmt.Sprintf("failed to unmarshal account from dynamo: %s", err))
		}
		return dynamoToAccount(dynAcc), nil
	}

	acc := account.NewAccount(email)

	item, err := attributevalue.MarshalMap(accountToDynamo(acc))
	if err != nil {
		return account.Account{}, account.NewFailedToTranslateToDBModelError("Failed to translate account to dynamo model", err)
	}

	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()))

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condFailedErr) {
			return account.Account{}, account.NewAccountAlreadyExistsError(fmt.Sprintf("Account for email %s already exists", email), err)
		}
		return account.Account{}, account.NewFailedToWriteError("Failed PutItem call", err)
	}

	return acc, nil
}
