package trace

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSONL writes one JSON object per record.
func WriteJSONL(w io.Writer, st *SimulationTrace) error {
	if st == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	for i := range st.Events {
		if err := enc.Encode(&st.Events[i]); err != nil {
			return fmt.Errorf("encoding event %d: %w", i, err)
		}
	}
	return nil
}

// ReadJSONL parses records written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]EventRecord, error) {
	dec := json.NewDecoder(r)
	var records []EventRecord
	for dec.More() {
		var rec EventRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding event %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
