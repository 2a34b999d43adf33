package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/genforge-dev/genforge/queue"
)

// formatVersion tags the artifact layout. Bump on incompatible changes;
// restore rejects versions it does not understand.
const formatVersion = 1

// artifact is the self-describing on-disk/on-wire envelope: a version tag
// and a checksum over the state body, so corruption is detectable on
// restore without trusting the storage layer.
type artifact struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	State    json.RawMessage `json:"state"`
}

// encodeState serializes a queue state deterministically: the state is
// normalized first, and the JSON field order is fixed by the struct
// definitions, so equal states produce byte-identical artifacts.
func encodeState(st queue.State) ([]byte, string, error) {
	body, err := json.Marshal(st.Normalize())
	if err != nil {
		return nil, "", fmt.Errorf("marshal state: %w", err)
	}

	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])

	data, err := json.Marshal(artifact{
		Version:  formatVersion,
		Checksum: checksum,
		State:    body,
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal artifact: %w", err)
	}
	return data, checksum, nil
}

// decodeState parses and validates an artifact. Any mismatch between the
// embedded checksum or version and the body, or a state that violates the
// queue invariant, is reported as ErrCorrupt.
func decodeState(data []byte) (queue.State, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return queue.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if a.Version != formatVersion {
		return queue.State{}, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, a.Version)
	}

	sum := sha256.Sum256(a.State)
	if hex.EncodeToString(sum[:]) != a.Checksum {
		return queue.State{}, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var st queue.State
	if err := json.Unmarshal(a.State, &st); err != nil {
		return queue.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := st.Validate(); err != nil {
		return queue.State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return st, nil
}
