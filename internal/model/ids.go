package model

import (
	"fmt"
	"strings"
	"unicode"
)

// NameError reports an identifier that fails name validation.
type NameError struct {
	Name    string
	Message string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Message)
}

// ValidateName checks the rules shared by every ledger identifier:
// non-empty, no whitespace, and none of the reserved separators '@' and '#'.
func ValidateName(s string) error {
	if s == "" {
		return &NameError{Name: s, Message: "name must not be empty"}
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return &NameError{Name: s, Message: "name must not contain whitespace"}
		}
		if r == '@' || r == '#' {
			return &NameError{Name: s, Message: fmt.Sprintf("name must not contain %q", r)}
		}
	}
	return nil
}

// TriggerID is the unique, stable name of a registered trigger.
type TriggerID string

// NewTriggerID validates s and returns it as a TriggerID.
func NewTriggerID(s string) (TriggerID, error) {
	if err := ValidateName(s); err != nil {
		return "", fmt.Errorf("trigger id: %w", err)
	}
	return TriggerID(s), nil
}

// MustTriggerID is like NewTriggerID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTriggerID(s string) TriggerID {
	id, err := NewTriggerID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id TriggerID) String() string { return string(id) }

// MarshalText implements encoding.TextMarshaler.
func (id TriggerID) MarshalText() ([]byte, error) {
	return []byte(id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the name.
func (id *TriggerID) UnmarshalText(text []byte) error {
	parsed, err := NewTriggerID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AccountID identifies an authority: the account on whose behalf an
// instruction or trigger executes. Textual form is "name@domain".
type AccountID struct {
	Name   string
	Domain string
}

// ParseAccountID parses "name@domain".
func ParseAccountID(s string) (AccountID, error) {
	name, domain, ok := strings.Cut(s, "@")
	if !ok {
		return AccountID{}, fmt.Errorf("account id %q: expected name@domain", s)
	}
	if err := ValidateName(name); err != nil {
		return AccountID{}, fmt.Errorf("account id %q: %w", s, err)
	}
	if err := ValidateName(domain); err != nil {
		return AccountID{}, fmt.Errorf("account id %q: domain: %w", s, err)
	}
	return AccountID{Name: name, Domain: domain}, nil
}

// MustAccountID is like ParseAccountID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string {
	return a.Name + "@" + a.Domain
}

// IsZero reports whether a is the zero AccountID.
func (a AccountID) IsZero() bool {
	return a.Name == "" && a.Domain == ""
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
