// Package store provides persistence implementations for the automation engine.
// The Store interface is defined in the parent automation package
// (../store_interface.go) to avoid import cycles between the automation
// and store packages.
//
// This package contains concrete implementations:
//   - DynamoDBStore: AWS DynamoDB backend
//   - MemoryStore: In-memory backend for tests and single-process deployments
//
// Schema design follows single-table patterns defined in schema.go.
package store
