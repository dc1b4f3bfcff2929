package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTriggerEvent = "iroha/trigger-event/v1"
	DomainNotification = "iroha/notification/v1"
	DomainBlock        = "iroha/block/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TriggerEventID computes the content-addressed id of a lifecycle event.
// The id is stable across replays given the same block height and seq.
func TriggerEventID(ev TriggerEvent, height uint64, seq int64) (string, error) {
	obj := Map{
		"kind":       String(ev.Kind),
		"trigger_id": ev.ID,
		"height":     Int(int64(height)),
		"seq":        Int(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TriggerEventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTriggerEvent, canonical), nil
}

// NotificationID computes the content-addressed id of a notification event.
func NotificationID(ev NotificationEvent, height uint64, seq int64) (string, error) {
	var obj Map
	switch e := ev.(type) {
	case TriggerCompletedEvent:
		obj = Map{
			"event":      String("TriggerCompleted"),
			"trigger_id": e.TriggerID,
			"outcome":    String(e.Outcome.Type().String()),
			"reason":     String(e.Outcome.Reason),
			"height":     Int(int64(height)),
			"seq":        Int(seq),
		}
	default:
		return "", fmt.Errorf("NotificationID: unsupported event %T", ev)
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("NotificationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNotification, canonical), nil
}

// BlockHash computes the content-addressed hash of an encoded block payload.
func BlockHash(payload []byte) string {
	return hashWithDomain(DomainBlock, payload)
}

// MustTriggerEventID is like TriggerEventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTriggerEventID(ev TriggerEvent, height uint64, seq int64) string {
	id, err := TriggerEventID(ev, height, seq)
	if err != nil {
		panic(err)
	}
	return id
}
