package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

func emitOrderEvent(t *testing.T, svc *Service, conn *gorm.DB) uuid.UUID {
	t.Helper()
	aggregateID := uuid.New()
	_, err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Data:          map[string]string{"orderId": aggregateID.String()},
	})
	require.NoError(t, err)
	return aggregateID
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())

	aggregateID := emitOrderEvent(t, svc, conn)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)
	assert.Contains(t, string(rows[0].Payload), `"version":1`)
	assert.Contains(t, string(rows[0].Payload), aggregateID.String())
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), logger.Nop())
	_, err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated})
	require.Error(t, err)
}

func TestFetchSkipsExhaustedAndPublished(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())

	emitOrderEvent(t, svc, conn)
	emitOrderEvent(t, svc, conn)
	emitOrderEvent(t, svc, conn)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[1].ID, errors.New("boom"), 3))
	require.NoError(t, repo.MarkFailedTx(conn, rows[2].ID, errors.New("transient")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "transient", *rows[0].LastError)
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)

	eventID := uuid.New()
	msg := strings.Repeat("x", maxDLQErrorLen+50)
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQErrorReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())

	emitOrderEvent(t, svc, conn)
	emitOrderEvent(t, svc, conn)
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	old := time.Now().UTC().Add(-10 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("id = ?", rows[0].ID).
		Update("published_at", old).Error)

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
