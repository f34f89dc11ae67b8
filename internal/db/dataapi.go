package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"

	"aurora_schema_migrator/internal/config"
)

// DataAPIClient is the subset of the rdsdata client the executor calls.
type DataAPIClient interface {
	ExecuteStatement(ctx context.Context, params *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
	BeginTransaction(ctx context.Context, params *rdsdata.BeginTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.BeginTransactionOutput, error)
	CommitTransaction(ctx context.Context, params *rdsdata.CommitTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.CommitTransactionOutput, error)
	RollbackTransaction(ctx context.Context, params *rdsdata.RollbackTransactionInput, optFns ...func(*rdsdata.Options)) (*rdsdata.RollbackTransactionOutput, error)
}

// DataAPIExecutor reaches the Aurora cluster through its HTTP Data API. Every
// call carries the secret, database and cluster coordinates from cfg.
type DataAPIExecutor struct {
	client DataAPIClient
	cfg    config.DataAPIConfig
}

func NewDataAPIExecutor(client DataAPIClient, cfg config.DataAPIConfig) *DataAPIExecutor {
	return &DataAPIExecutor{client: client, cfg: cfg}
}

// NewDataAPIClient builds an rdsdata client from the default credential chain.
func NewDataAPIClient(ctx context.Context, cfg config.DataAPIConfig) (*rdsdata.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return rdsdata.NewFromConfig(awsCfg), nil
}

func (e *DataAPIExecutor) Close() error { return nil }

func (e *DataAPIExecutor) Execute(ctx context.Context, sqlText string, params []Param, txID string) (*Result, error) {
	in := &rdsdata.ExecuteStatementInput{
		ResourceArn: aws.String(e.cfg.ClusterARN),
		SecretArn:   aws.String(e.cfg.SecretARN),
		Database:    aws.String(e.cfg.Database),
		Sql:         aws.String(sqlText),
		Parameters:  toSQLParameters(params),
	}
	if txID != "" {
		in.TransactionId = aws.String(txID)
	}
	out, err := e.client.ExecuteStatement(ctx, in)
	if err != nil {
		return nil, classifyDataAPI(sqlText, err)
	}
	res := &Result{}
	for _, rec := range out.Records {
		row := make([]Value, len(rec))
		for i, f := range rec {
			row[i] = fromField(f)
		}
		res.Records = append(res.Records, row)
	}
	return res, nil
}

func (e *DataAPIExecutor) BeginTransaction(ctx context.Context) (string, error) {
	out, err := e.client.BeginTransaction(ctx, &rdsdata.BeginTransactionInput{
		ResourceArn: aws.String(e.cfg.ClusterARN),
		SecretArn:   aws.String(e.cfg.SecretARN),
		Database:    aws.String(e.cfg.Database),
	})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	return aws.ToString(out.TransactionId), nil
}

func (e *DataAPIExecutor) CommitTransaction(ctx context.Context, txID string) error {
	_, err := e.client.CommitTransaction(ctx, &rdsdata.CommitTransactionInput{
		ResourceArn:   aws.String(e.cfg.ClusterARN),
		SecretArn:     aws.String(e.cfg.SecretARN),
		TransactionId: aws.String(txID),
	})
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (e *DataAPIExecutor) RollbackTransaction(ctx context.Context, txID string) error {
	_, err := e.client.RollbackTransaction(ctx, &rdsdata.RollbackTransactionInput{
		ResourceArn:   aws.String(e.cfg.ClusterARN),
		SecretArn:     aws.String(e.cfg.SecretARN),
		TransactionId: aws.String(txID),
	})
	if err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

func classifyDataAPI(sqlText string, err error) error {
	var bad *types.BadRequestException
	if errors.As(err, &bad) {
		return &StatementError{SQL: sqlText, Err: err}
	}
	return err
}

func toSQLParameters(params []Param) []types.SqlParameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]types.SqlParameter, 0, len(params))
	for _, p := range params {
		out = append(out, types.SqlParameter{
			Name:  aws.String(p.Name),
			Value: toField(p.Value),
		})
	}
	return out
}

func toField(v Value) types.Field {
	switch v.Kind {
	case KindString:
		return &types.FieldMemberStringValue{Value: v.Str}
	case KindLong:
		return &types.FieldMemberLongValue{Value: v.Long}
	case KindDouble:
		return &types.FieldMemberDoubleValue{Value: v.Double}
	case KindBool:
		return &types.FieldMemberBooleanValue{Value: v.Bool}
	case KindBlob:
		return &types.FieldMemberBlobValue{Value: v.Blob}
	default:
		return &types.FieldMemberIsNull{Value: true}
	}
}

// fromField maps the Data API field union back to a Value. Array fields never
// come back from the plain statements this module issues and read as NULL.
func fromField(f types.Field) Value {
	switch f := f.(type) {
	case *types.FieldMemberStringValue:
		return StringValue(f.Value)
	case *types.FieldMemberLongValue:
		return LongValue(f.Value)
	case *types.FieldMemberDoubleValue:
		return DoubleValue(f.Value)
	case *types.FieldMemberBooleanValue:
		return BoolValue(f.Value)
	case *types.FieldMemberBlobValue:
		return BlobValue(f.Value)
	default:
		return NullValue()
	}
}
