package model

import "time"

// NOTE: These are the persisted shapes of the event trail. Ids are
// content-addressed (see hash.go); Seq is the logical clock value.

// BlockRecord is an applied block as stored in the trail.
type BlockRecord struct {
	Height  uint64
	Hash    string
	Time    time.Time
	RunID   string
	Payload []byte
}

// TriggerEventRecord is a lifecycle event stamped with its position.
type TriggerEventRecord struct {
	ID     string
	Height uint64
	Seq    int64
	Event  TriggerEvent
}

// NotificationRecord is a notification event stamped with its position.
type NotificationRecord struct {
	ID     string
	Height uint64
	Seq    int64
	Event  NotificationEvent
}
