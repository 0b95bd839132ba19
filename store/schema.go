package store

import (
	"fmt"
	"time"
)

// DynamoDB schema constants for single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrGSI2PK     = "GSI2PK"
	AttrGSI2SK     = "GSI2SK"
	AttrEntityType = "entity_type"

	// Entity types
	EntityTypeWorkflow  = "Workflow"
	EntityTypeExecution = "Execution"

	// Index names
	IndexListIndex    = "GSI1"
	IndexTriggerIndex = "GSI2"
)

// sortKeyLayout is a fixed-width UTC timestamp so index sort keys order lexically
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z"

func sortKeyTime(t time.Time) string {
	return t.UTC().Format(sortKeyLayout)
}

// Key builders for single-table design

// Workflow keys: PK=WORKFLOW#{id}, SK=META
func workflowPK(id string) string {
	return fmt.Sprintf("WORKFLOW#%s", id)
}

func metaSK() string {
	return "META"
}

// All workflows share one GSI1 partition, sorted by creation time
func workflowGSI1PK() string {
	return "WORKFLOWS"
}

// Active-by-trigger lookups: GSI2PK=TRIGGER#{type}#STATUS#{status}
func workflowGSI2PK(trigger, status string) string {
	return fmt.Sprintf("TRIGGER#%s#STATUS#%s", trigger, status)
}

// Execution keys: PK=EXEC#{id}, SK=META
func executionPK(id string) string {
	return fmt.Sprintf("EXEC#%s", id)
}

// Executions of one workflow: GSI1PK=WF#{workflowID}, GSI1SK=startedAt
func executionGSI1PK(workflowID string) string {
	return fmt.Sprintf("WF#%s", workflowID)
}
