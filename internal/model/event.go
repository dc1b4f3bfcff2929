package model

// TriggerEventKind is the lifecycle transition a TriggerEvent records.
type TriggerEventKind string

const (
	TriggerCreated   TriggerEventKind = "Created"
	TriggerDeleted   TriggerEventKind = "Deleted"
	TriggerExtended  TriggerEventKind = "Extended"
	TriggerShortened TriggerEventKind = "Shortened"
)

// TriggerEventKinds returns every lifecycle kind in declaration order.
func TriggerEventKinds() []TriggerEventKind {
	return []TriggerEventKind{TriggerCreated, TriggerDeleted, TriggerExtended, TriggerShortened}
}

// TriggerEvent is the internal lifecycle signal emitted by every successful
// trigger-mutating instruction.
type TriggerEvent struct {
	Kind TriggerEventKind
	ID   TriggerID
}

func (e TriggerEvent) String() string {
	return string(e.Kind) + "(" + string(e.ID) + ")"
}

func Created(id TriggerID) TriggerEvent   { return TriggerEvent{Kind: TriggerCreated, ID: id} }
func Deleted(id TriggerID) TriggerEvent   { return TriggerEvent{Kind: TriggerDeleted, ID: id} }
func Extended(id TriggerID) TriggerEvent  { return TriggerEvent{Kind: TriggerExtended, ID: id} }
func Shortened(id TriggerID) TriggerEvent { return TriggerEvent{Kind: TriggerShortened, ID: id} }
