package records

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("exprscore.records")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("records: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Result is the score of one item under one formula.
type Result struct {
	ID      string  `cbor:"id"`
	Formula int     `cbor:"formula"`
	Score   float64 `cbor:"score"`
}

// Results is a scoring run written as one CBOR document.
type Results struct {
	RunID    string   `cbor:"run_id"`
	Strategy string   `cbor:"strategy"`
	Formulas []string `cbor:"formulas"`

	// Fingerprints holds the content hash of each formula, parallel to
	// Formulas.
	Fingerprints []string `cbor:"fingerprints,omitempty"`
	Results      []Result `cbor:"results"`
}

// MarshalUsers serializes users to canonical CBOR.
func MarshalUsers(users []UserScore) ([]byte, error) {
	return cborEncMode.Marshal(users)
}

// UnmarshalUsers deserializes users from CBOR.
func UnmarshalUsers(data []byte) ([]UserScore, error) {
	var users []UserScore
	if err := cbor.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("records: unmarshal users: %w", err)
	}
	return users, nil
}

// LoadCBOR reads a CBOR array of users from path.
func LoadCBOR(path string) ([]UserScore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("records: cannot read %s: %w", path, err)
	}
	users, err := UnmarshalUsers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded %d users from %s", len(users), path)
	return users, nil
}

// WriteCBOR writes users to path as a CBOR array.
func WriteCBOR(path string, users []UserScore) error {
	data, err := MarshalUsers(users)
	if err != nil {
		return fmt.Errorf("records: marshal users: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// MarshalResults serializes a run's results to canonical CBOR.
func MarshalResults(r *Results) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalResults deserializes a run's results from CBOR.
func UnmarshalResults(data []byte) (*Results, error) {
	var r Results
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("records: unmarshal results: %w", err)
	}
	return &r, nil
}

// WriteResults writes r to path.
func WriteResults(path string, r *Results) error {
	data, err := MarshalResults(r)
	if err != nil {
		return fmt.Errorf("records: marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("records: cannot write %s: %w", path, err)
	}
	log.Debugf("wrote %d results to %s", len(r.Results), path)
	return nil
}
