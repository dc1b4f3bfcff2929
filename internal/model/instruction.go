package model

// InstructionKind names an instruction variant.
type InstructionKind string

const (
	KindRegisterTrigger   InstructionKind = "register_trigger"
	KindUnregisterTrigger InstructionKind = "unregister_trigger"
	KindMintTrigger       InstructionKind = "mint_trigger"
	KindBurnTrigger       InstructionKind = "burn_trigger"
	KindExecuteTrigger    InstructionKind = "execute_trigger"
	KindFail              InstructionKind = "fail"
)

// InstructionKinds returns every instruction kind in declaration order.
func InstructionKinds() []InstructionKind {
	return []InstructionKind{
		KindRegisterTrigger,
		KindUnregisterTrigger,
		KindMintTrigger,
		KindBurnTrigger,
		KindExecuteTrigger,
		KindFail,
	}
}

// Instruction is a sealed interface for atomic requests to mutate ledger
// state. Implemented by RegisterTrigger, UnregisterTrigger, MintTrigger,
// BurnTrigger, ExecuteTrigger and Fail.
type Instruction interface {
	Kind() InstructionKind
	instruction()
}

// RegisterTrigger inserts a new trigger into the registry.
type RegisterTrigger struct {
	Trigger Trigger
}

// UnregisterTrigger removes a trigger by id.
type UnregisterTrigger struct {
	ID TriggerID
}

// MintTrigger increases a trigger's remaining repeats.
type MintTrigger struct {
	ID          TriggerID
	Repetitions uint32
}

// BurnTrigger decreases a trigger's remaining repeats.
type BurnTrigger struct {
	ID          TriggerID
	Repetitions uint32
}

// ExecuteTrigger requests a run of a trigger's stored action.
type ExecuteTrigger struct {
	ID TriggerID
}

// Fail always fails with Message.
type Fail struct {
	Message string
}

func (RegisterTrigger) Kind() InstructionKind   { return KindRegisterTrigger }
func (UnregisterTrigger) Kind() InstructionKind { return KindUnregisterTrigger }
func (MintTrigger) Kind() InstructionKind       { return KindMintTrigger }
func (BurnTrigger) Kind() InstructionKind       { return KindBurnTrigger }
func (ExecuteTrigger) Kind() InstructionKind    { return KindExecuteTrigger }
func (Fail) Kind() InstructionKind              { return KindFail }

func (RegisterTrigger) instruction()   {}
func (UnregisterTrigger) instruction() {}
func (MintTrigger) instruction()       {}
func (BurnTrigger) instruction()       {}
func (ExecuteTrigger) instruction()    {}
func (Fail) instruction()              {}
