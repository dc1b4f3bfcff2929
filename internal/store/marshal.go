package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chriszhao1988/iroha/internal/model"
)

// timeLayout is the stored block time format. UTC with fixed nanosecond
// precision so that lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse block time %q: %w", s, err)
	}
	return t, nil
}

// marshalNotification encodes a notification event as its JSON envelope.
func marshalNotification(ev model.NotificationEvent) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	return string(data), nil
}

func unmarshalNotification(data string) (model.NotificationEvent, error) {
	ev, err := model.UnmarshalNotificationEvent([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	return ev, nil
}

// notificationColumns extracts the indexed columns of ev.
func notificationColumns(ev model.NotificationEvent) (triggerID, outcome, reason string, err error) {
	switch e := ev.(type) {
	case model.TriggerCompletedEvent:
		return string(e.TriggerID), e.Outcome.Type().String(), e.Outcome.Reason, nil
	default:
		return "", "", "", fmt.Errorf("unsupported notification event %T", ev)
	}
}
