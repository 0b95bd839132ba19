package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/automation"
)

// DynamoDBStore implements automation.Store using AWS DynamoDB
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

// NewDynamoDBStore creates a new DynamoDB-backed store
func NewDynamoDBStore(client DynamoDBClient, tableName string) automation.Store {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

// Workflow operations

func (s *DynamoDBStore) CreateWorkflow(ctx context.Context, wf *automation.Workflow) error {
	item, err := s.workflowItem(wf)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("workflow %s already exists", wf.ID)
		}
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) GetWorkflow(ctx context.Context, id string) (*automation.Workflow, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(workflowPK(id)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, automation.ErrNotFound)
	}

	var wf automation.Workflow
	if err := attributevalue.UnmarshalMap(result.Item, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	return &wf, nil
}

// UpdateWorkflow rewrites the definition attributes in place. run_count and
// last_run_at are left untouched so concurrent RecordSuccessfulRun calls are
// never overwritten.
func (s *DynamoDBStore) UpdateWorkflow(ctx context.Context, wf *automation.Workflow) error {
	fields := []struct {
		name  string
		value any
	}{
		{"name", wf.Name},
		{"description", wf.Description},
		{"trigger", wf.Trigger},
		{"conditions", wf.Conditions},
		{"actions", wf.Actions},
		{"status", wf.Status},
		{"updated_at", wf.UpdatedAt},
		{AttrGSI2PK, workflowGSI2PK(string(wf.Trigger.Type), string(wf.Status))},
	}

	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	expr := "SET "
	for i, f := range fields {
		av, err := attributevalue.Marshal(f.value)
		if err != nil {
			return fmt.Errorf("failed to marshal workflow %s: %w", f.name, err)
		}
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		names[nameKey] = f.name
		values[valueKey] = av
		if i > 0 {
			expr += ", "
		}
		expr += nameKey + " = " + valueKey
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(workflowPK(wf.ID)),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("workflow %s: %w", wf.ID, automation.ErrNotFound)
		}
		return fmt.Errorf("failed to update workflow: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) ListWorkflows(ctx context.Context, filter automation.WorkflowFilter) ([]*automation.Workflow, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(IndexListIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: workflowGSI1PK()},
		},
	}

	// Both filters set is exactly the trigger index partition
	if filter.Status != nil && filter.Trigger != nil {
		input.IndexName = aws.String(IndexTriggerIndex)
		input.KeyConditionExpression = aws.String("GSI2PK = :pk")
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{
			Value: workflowGSI2PK(string(*filter.Trigger), string(*filter.Status)),
		}
	}

	var workflows []*automation.Workflow
	err := s.queryAll(ctx, input, func(item map[string]types.AttributeValue) (bool, error) {
		var wf automation.Workflow
		if err := attributevalue.UnmarshalMap(item, &wf); err != nil {
			return false, fmt.Errorf("failed to unmarshal workflow: %w", err)
		}

		// Apply filters
		if filter.Status != nil && wf.Status != *filter.Status {
			return true, nil
		}
		if filter.Trigger != nil && wf.Trigger.Type != *filter.Trigger {
			return true, nil
		}

		workflows = append(workflows, &wf)
		return filter.Limit <= 0 || len(workflows) < filter.Limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	if workflows == nil {
		workflows = []*automation.Workflow{}
	}
	return workflows, nil
}

func (s *DynamoDBStore) ListActiveWorkflowsByTrigger(ctx context.Context, kind automation.TriggerKind) ([]*automation.Workflow, error) {
	active := automation.WorkflowStatusActive
	return s.ListWorkflows(ctx, automation.WorkflowFilter{Status: &active, Trigger: &kind})
}

// RecordSuccessfulRun increments run_count with a single ADD so concurrent
// completions never lose an update
func (s *DynamoDBStore) RecordSuccessfulRun(ctx context.Context, workflowID string, at time.Time) error {
	atValue, err := attributevalue.Marshal(at)
	if err != nil {
		return fmt.Errorf("failed to marshal run time: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 itemKey(workflowPK(workflowID)),
		UpdateExpression:    aws.String("ADD run_count :one SET last_run_at = :at"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":at":  atValue,
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("workflow %s: %w", workflowID, automation.ErrNotFound)
		}
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// Execution operations

func (s *DynamoDBStore) CreateExecution(ctx context.Context, exec *automation.Execution) error {
	item, err := s.executionItem(exec)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("execution %s already exists", exec.ID)
		}
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) GetExecution(ctx context.Context, id string) (*automation.Execution, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(executionPK(id)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("execution %s: %w", id, automation.ErrNotFound)
	}

	var exec automation.Execution
	if err := attributevalue.UnmarshalMap(result.Item, &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return &exec, nil
}

func (s *DynamoDBStore) UpdateExecution(ctx context.Context, exec *automation.Execution) error {
	item, err := s.executionItem(exec)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("execution %s: %w", exec.ID, automation.ErrNotFound)
		}
		return fmt.Errorf("failed to update execution: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*automation.Execution, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(IndexListIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: executionGSI1PK(workflowID)},
		},
		// Most recent first
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var executions []*automation.Execution
	err := s.queryAll(ctx, input, func(item map[string]types.AttributeValue) (bool, error) {
		var exec automation.Execution
		if err := attributevalue.UnmarshalMap(item, &exec); err != nil {
			return false, fmt.Errorf("failed to unmarshal execution: %w", err)
		}
		executions = append(executions, &exec)
		return limit <= 0 || len(executions) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	if executions == nil {
		executions = []*automation.Execution{}
	}
	return executions, nil
}

// Helpers

func (s *DynamoDBStore) workflowItem(wf *automation.Workflow) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}

	// Add keys
	item[AttrPK] = &types.AttributeValueMemberS{Value: workflowPK(wf.ID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: metaSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeWorkflow}

	// Add GSI keys
	item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: workflowGSI1PK()}
	item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: sortKeyTime(wf.CreatedAt)}
	item[AttrGSI2PK] = &types.AttributeValueMemberS{
		Value: workflowGSI2PK(string(wf.Trigger.Type), string(wf.Status)),
	}
	item[AttrGSI2SK] = &types.AttributeValueMemberS{Value: sortKeyTime(wf.CreatedAt)}

	return item, nil
}

func (s *DynamoDBStore) executionItem(exec *automation.Execution) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(exec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution: %w", err)
	}

	// Add keys
	item[AttrPK] = &types.AttributeValueMemberS{Value: executionPK(exec.ID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: metaSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeExecution}

	// Add GSI keys
	item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: executionGSI1PK(exec.WorkflowID)}
	item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: sortKeyTime(exec.StartedAt)}

	return item, nil
}

// queryAll pages through a query, handing each item to fn until fn returns
// false or the results run out
func (s *DynamoDBStore) queryAll(ctx context.Context, input *dynamodb.QueryInput, fn func(map[string]types.AttributeValue) (bool, error)) error {
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return err
		}

		for _, item := range result.Items {
			more, err := fn(item)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}

		// Check if there are more results
		if result.LastEvaluatedKey == nil {
			return nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func itemKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: pk},
		AttrSK: &types.AttributeValueMemberS{Value: metaSK()},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
