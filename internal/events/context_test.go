package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/craftscan/craftscan/internal/events"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return default logger when none in context
	logger := events.FromContext(ctx)
	assert.NotNil(t, logger)
}

func TestWithLogger(t *testing.T) {
	ctx := context.Background()
	logger := &events.Logger{}

	ctx = events.WithLogger(ctx, logger)
	retrieved := events.FromContext(ctx)

	assert.Equal(t, logger, retrieved)
}

func TestWithScanID(t *testing.T) {
	ctx := context.Background()
	scanID := "scan-123"

	ctx = events.WithScanID(ctx, scanID)
	retrieved := events.GetScanID(ctx)

	assert.Equal(t, scanID, retrieved)

	// Should also add to logger fields
	logger := events.FromContext(ctx)
	assert.NotNil(t, logger)
}

func TestWithOperationID(t *testing.T) {
	ctx := context.Background()
	operationID := "op-456"

	ctx = events.WithOperationID(ctx, operationID)
	retrieved := events.GetOperationID(ctx)

	assert.Equal(t, operationID, retrieved)

	// Should also add to logger fields
	logger := events.FromContext(ctx)
	assert.NotNil(t, logger)
}

func TestGetScanIDEmpty(t *testing.T) {
	ctx := context.Background()
	id := events.GetScanID(ctx)
	assert.Empty(t, id)
}

func TestGetOperationIDEmpty(t *testing.T) {
	ctx := context.Background()
	id := events.GetOperationID(ctx)
	assert.Empty(t, id)
}

func TestSetDefault(t *testing.T) {
	customLogger := &events.Logger{}
	events.SetDefault(customLogger)

	ctx := context.Background()
	retrieved := events.FromContext(ctx)

	assert.Equal(t, customLogger, retrieved)
}
