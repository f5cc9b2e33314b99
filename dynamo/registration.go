package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artistlab-studio/campus-registration/registration"
	"github.com/artistlab-studio/campus-registration/sessions"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ registration.Repository = &DB{}

type registrationDynamo struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string

	ID        uuid.UUID
	Version   int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	Session   sessions.ID

	PaymentStatus registration.PaymentStatus
	// Omitted while nil so the apply condition can check for its absence.
	PaymentReference *string `dynamodbav:",omitempty"`

	CreatedAt time.Time
}

const (
	registrationEntityName = "REGISTRATION"
)

func registrationPK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func registrationEmailKey(email string) string {
	return fmt.Sprintf("EMAIL#%s", email)
}

func registrationToDynamo(reg registration.Registration) registrationDynamo {
	return registrationDynamo{
		PK:               registrationPK(reg.ID),
		SK:               registrationEntityName,
		GSI1PK:           registrationEmailKey(reg.Email),
		GSI1SK:           reg.CreatedAt.UTC().Format(sortableTimeFormat),
		ID:               reg.ID,
		Version:          reg.Version,
		FirstName:        reg.FirstName,
		LastName:         reg.LastName,
		Email:            reg.Email,
		Phone:            reg.Phone,
		City:             reg.City,
		Session:          reg.Session,
		PaymentStatus:    reg.PaymentStatus,
		PaymentReference: reg.PaymentReference,
		CreatedAt:        reg.CreatedAt,
	}
}

func dynamoToRegistration(dynReg registrationDynamo) registration.Registration {
	return registration.Registration{
		ID:               dynReg.ID,
		Version:          dynReg.Version,
		FirstName:        dynReg.FirstName,
		LastName:         dynReg.LastName,
		Email:            dynReg.Email,
		Phone:            dynReg.Phone,
		City:             dynReg.City,
		Session:          dynReg.Session,
		PaymentStatus:    dynReg.PaymentStatus,
		PaymentReference: dynReg.PaymentReference,
		CreatedAt:        dynReg.CreatedAt,
	}
}

func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	dynamoReg := registrationToDynamo(reg)

	item, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
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
			return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.NewTimeoutError("CreateRegistration timed out")
		}
		return registration.NewFailedToWriteError("Failed PutItem call", err)
	}

	return nil
}

func (d *DB) GetRegistrationsByEmail(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(registrationEmailKey(email)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build dynamo key expression: %s", err))
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// Newest first
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, registration.NewTimeoutError("GetRegistrationsByEmail timed out")
		}
		return nil, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registrations for email %s", email), err)
	}

	var dynamoItems []registrationDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo registrations: %s", err))
	}

	regs := make([]registration.Registration, 0, len(dynamoItems))
	for _, item := range dynamoItems {
		regs = append(regs, dynamoToRegistration(item))
	}

	return regs, nil
}

// ApplyPaymentResult is a single conditional update: it only applies while no
// payment reference is recorded, so a duplicated or concurrent delivery of the
// same event reports not-applied instead of overwriting.
func (d *DB) ApplyPaymentResult(ctx context.Context, id uuid.UUID, status registration.PaymentStatus, paymentReference string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists().
			And(expression.Name("PaymentReference").AttributeNotExists())).
		WithUpdate(expression.
			Set(expression.Name("PaymentStatus"), expression.Value(status)).
			Set(expression.Name("PaymentReference"), expression.Value(paymentReference)).
			Set(expression.Name("Version"), expression.Name("Version").Plus(expression.Value(1)))))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: registrationPK(id)},
			"SK": &types.AttributeValueMemberS{Value: registrationEntityName},
		},
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condFailedErr) {
			// Reference already recorded; the event was applied before.
			return false, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return false, registration.NewTimeoutError("ApplyPaymentResult timed out")
		}
		return false, registration.NewFailedToWriteError(fmt.Sprintf("Failed to apply payment result to registration %q", id), err)
	}

	return true, nil
}

// The provider only reports the payer's email on expiry, so this walks the
// recent rows for that email and closes the ones still pending.
const expireScanLimit = 25

func (d *DB) ExpirePendingRegistrations(ctx context.Context, email string) (int, error) {
	regs, err := d.GetRegistrationsByEmail(ctx, email, expireScanLimit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, reg := range regs {
		if reg.PaymentStatus != registration.PAYMENT_PENDING {
			continue
		}

		applied, err := d.expireRegistration(ctx, reg.ID)
		if err != nil {
			return expired, err
		}
		if applied {
			expired++
		}
	}

	return expired, nil
}

func (d *DB) expireRegistration(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("PaymentStatus").Equal(expression.Value(registration.PAYMENT_PENDING))).
		WithUpdate(expression.
			Set(expression.Name("PaymentStatus"), expression.Value(registration.PAYMENT_EXPIRED)).
			Set(expression.Name("Version"), expression.Name("Version").Plus(expression.Value(1)))))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: registrationPK(id)},
			"SK": &types.AttributeValueMemberS{Value: registrationEntityName},
		},
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condFailedErr) {
			// Raced with a completion or an earlier expiry; leave it alone.
			return false, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return false, registration.NewTimeoutError("ExpirePendingRegistrations timed out")
		}
		return false, registration.NewFailedToWriteError(fmt.Sprintf("Failed to expire registration %q", id), err)
	}

	return true, nil
}
