package bridge

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// Observation classifies a single read of a shared protocol file. Every
// state is recoverable: Absent and Corrupt both mean "act on nothing this
// cycle", never "the peer is gone".
type Observation int

const (
	// Absent means the file does not exist.
	Absent Observation = iota
	// Valid means the file existed and parsed.
	Valid
	// Corrupt means the file existed but could not be read or parsed.
	// A concurrent writer mid-write looks identical, so the file is left
	// in place for the next cycle.
	Corrupt
)

// String returns the lower-case state name for log output.
func (o Observation) String() string {
	switch o {
	case Absent:
		return "absent"
	case Valid:
		return "valid"
	case Corrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// observeJSON reads path into v and classifies the attempt. The returned
// error is populated only for Corrupt and explains the classification.
func observeJSON(path string, v any) (Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Absent, nil
		}
		return Corrupt, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return Corrupt, err
	}
	return Valid, nil
}
