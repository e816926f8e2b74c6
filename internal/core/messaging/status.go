package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/models"
)

const statusKeyPrefix = "message_status:"

// statusTTL keeps delivery reports hot for a week; the durable copy has
// no expiry.
const statusTTL = 7 * 24 * time.Hour

// StatusTracker records messaging-gateway delivery reports in both
// tiers: the durable store for audit, the hot tier for quick lookups.
type StatusTracker struct {
	cache core.Cache
	obj   core.ObjectStore
}

func NewStatusTracker(cache core.Cache, obj core.ObjectStore) *StatusTracker {
	return &StatusTracker{cache: cache, obj: obj}
}

func statusObjectKey(messageID string) string {
	return "message_status/" + messageID + ".json"
}

// Record persists one delivery report. Tier failures are independent and
// logged; a report is never lost to a single tier being down.
func (t *StatusTracker) Record(ctx context.Context, messageID, status, timestamp string) error {
	record := models.DeliveryStatus{
		MessageID: messageID,
		Status:    status,
		Timestamp: timestamp,
		UpdatedAt: models.NowISO(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := t.obj.Upload(ctx, statusObjectKey(messageID), data, "application/json"); err != nil {
		log.Printf("status: durable write failed for %s: %v", messageID, err)
	}
	if err := t.cache.Set(ctx, statusKeyPrefix+messageID, record, statusTTL); err != nil {
		return fmt.Errorf("status: hot write for %s: %w", messageID, err)
	}
	return nil
}

// Status returns the last known delivery status, "unknown" when no
// report has arrived.
func (t *StatusTracker) Status(ctx context.Context, messageID string) models.DeliveryStatus {
	var record models.DeliveryStatus
	ok, err := t.cache.Get(ctx, statusKeyPrefix+messageID, &record)
	if err != nil {
		log.Printf("status: hot read failed for %s: %v", messageID, err)
	}
	if !ok {
		return models.DeliveryStatus{MessageID: messageID, Status: "unknown"}
	}
	return record
}
