package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/chriszhao1988/iroha/internal/script"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is the fixed run id stamped on every block.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// MaxTriggerDepth overrides the pipeline's trigger round limit.
	MaxTriggerDepth int `yaml:"max_trigger_depth,omitempty"`

	// Script is the ledger script to apply, in the script package format.
	Script yaml.Node `yaml:"script"`

	// Subscriptions are named notification filters attached before the
	// first block.
	Subscriptions map[string]script.NotificationFilterDTO `yaml:"subscriptions,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	parsed *script.Script
}

// Parsed returns the decoded script.
func (s *Scenario) Parsed() *script.Script { return s.parsed }

// SubscriptionNames returns subscription names in sorted order.
func (s *Scenario) SubscriptionNames() []string {
	names := make([]string, 0, len(s.Subscriptions))
	for name := range s.Subscriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Assertion validates one aspect of a scenario's outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Height and Index locate a transaction (tx_result).
	Height uint64 `yaml:"height,omitempty"`
	Index  int    `yaml:"index,omitempty"`

	// Code is OK or an instruction error code (tx_result), or a query
	// failure code (query).
	Code string `yaml:"code,omitempty"`

	// Trigger and Repeats are used by repeats, e.g. exactly(7).
	Trigger string `yaml:"trigger,omitempty"`
	Repeats string `yaml:"repeats,omitempty"`

	// Subscription names the subscription (notifications).
	Subscription string `yaml:"subscription,omitempty"`

	// Query is the query label (query) and Value its expected result.
	Query string `yaml:"query,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Events is the expected event sequence (trigger_events, notifications).
	Events []string `yaml:"events,omitempty"`

	// Triggers is the expected trigger id list (active, pruned).
	Triggers []string `yaml:"triggers,omitempty"`
}

// Assertion type constants.
const (
	AssertTxResult      = "tx_result"
	AssertTriggerEvents = "trigger_events"
	AssertRepeats       = "repeats"
	AssertActive        = "active"
	AssertPruned        = "pruned"
	AssertNotifications = "notifications"
	AssertQuery         = "query"
)

// CodeOK is the tx_result code of a committed transaction.
const CodeOK = "OK"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	body, err := yaml.Marshal(&scenario.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode script: %w", err)
	}
	parsed, err := script.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	scenario.parsed = parsed

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Script.Kind != yaml.MappingNode {
		return fmt.Errorf("script is required and must be a mapping")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.MaxTriggerDepth < 0 {
		return fmt.Errorf("max_trigger_depth must be non-negative")
	}

	for _, name := range s.SubscriptionNames() {
		if _, err := s.Subscriptions[name].ToNotificationFilter(); err != nil {
			return fmt.Errorf("subscriptions.%s: %w", name, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTxResult:
		if a.Height == 0 {
			return fmt.Errorf("assertions[%d]: height is required for tx_result", index)
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for tx_result", index)
		}
	case AssertTriggerEvents, AssertActive, AssertPruned:
		// An empty list asserts that nothing happened.
	case AssertRepeats:
		if a.Trigger == "" || a.Repeats == "" {
			return fmt.Errorf("assertions[%d]: trigger and repeats are required for repeats", index)
		}
	case AssertNotifications:
		if _, ok := s.Subscriptions[a.Subscription]; !ok {
			return fmt.Errorf("assertions[%d]: unknown subscription %q", index, a.Subscription)
		}
	case AssertQuery:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query label is required for query", index)
		}
		if a.Code != "" && a.Value != nil {
			return fmt.Errorf("assertions[%d]: query takes either value or code, not both", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
