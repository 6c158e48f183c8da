package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// LatencyTable holds the EX-stage duration for each of the three op types.
// The default values ({1, 2, 10}) are the fixed mapping used unless a
// caller overrides them; LoadLatencyTable lets a caller override them from
// a JSON file for experimentation.
type LatencyTable struct {
	Op0Latency int `json:"op0_latency"`
	Op1Latency int `json:"op1_latency"`
	Op2Latency int `json:"op2_latency"`
}

// DefaultLatencyTable returns the fixed {1, 2, 10} mapping used unless a
// config file overrides it.
func DefaultLatencyTable() *LatencyTable {
	return &LatencyTable{
		Op0Latency: 1,
		Op1Latency: 2,
		Op2Latency: 10,
	}
}

// Latency returns the EX-stage duration for the given op_type. opType
// values outside {0,1,2} are a trace-validation concern, not the engine's;
// callers are expected to have rejected them already.
func (t *LatencyTable) Latency(opType int) int {
	switch opType {
	case 0:
		return t.Op0Latency
	case 1:
		return t.Op1Latency
	case 2:
		return t.Op2Latency
	default:
		panic(fmt.Sprintf("engine: invalid op_type %d", opType))
	}
}

// Validate checks that every latency is positive.
func (t *LatencyTable) Validate() error {
	if t.Op0Latency <= 0 {
		return fmt.Errorf("op0_latency must be > 0")
	}
	if t.Op1Latency <= 0 {
		return fmt.Errorf("op1_latency must be > 0")
	}
	if t.Op2Latency <= 0 {
		return fmt.Errorf("op2_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *LatencyTable) Clone() *LatencyTable {
	clone := *t
	return &clone
}

// LoadLatencyTable loads a LatencyTable from a JSON file, starting from the
// default values for any field the file omits.
func LoadLatencyTable(path string) (*LatencyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading latency config %q: %w", path, err)
	}

	table := DefaultLatencyTable()
	if err := json.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("parsing latency config %q: %w", path, err)
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid latency config %q: %w", path, err)
	}

	return table, nil
}

// SaveLatencyTable writes the table to path as indented JSON.
func (t *LatencyTable) SaveLatencyTable(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing latency config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing latency config %q: %w", path, err)
	}
	return nil
}
