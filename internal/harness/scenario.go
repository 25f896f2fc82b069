package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines an acceptance scenario: a sequence of terminal
// operations executed against a fresh ledger, with optional expectations
// per step. Scenarios validate end-to-end behavior the way a cashier
// exercises it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps is the operation sequence. Each step runs one minute after
	// the previous one on the scenario clock.
	Steps []Step `yaml:"steps"`
}

// Step is one terminal operation.
type Step struct {
	// Op names the operation: shift_open, sell, order_ready,
	// order_complete, order_cancel, paid_in, paid_out, drawer_open,
	// shift_close, sync.
	Op string `yaml:"op"`

	// Args contains the operation arguments. Monetary values are strings
	// so YAML never coerces them to floats.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Error is the expected ledger error code (VALIDATION,
	// INVARIANT_VIOLATION, STORAGE, NETWORK). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Result contains expected result fields. Subset match: only the
	// listed fields are checked.
	Result map[string]any `yaml:"result,omitempty"`
}

// knownOps lists every operation the runner implements.
var knownOps = map[string]bool{
	"shift_open":     true,
	"shift_close":    true,
	"sell":           true,
	"order_ready":    true,
	"order_complete": true,
	"order_cancel":   true,
	"paid_in":        true,
	"paid_out":       true,
	"drawer_open":    true,
	"sync":           true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
	}
	return nil
}
