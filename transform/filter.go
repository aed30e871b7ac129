package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic"
)

type rowFilter func(r Record) (bool, error)

// newRowFilter returns a filter that keeps records for which rule evaluates to true.
// A nil filter is returned for an empty rule.
func newRowFilter(rule json.RawMessage) (rowFilter, error) {
	if len(bytes.TrimSpace(rule)) == 0 {
		return nil, nil
	}
	if !jsonlogic.IsValid(bytes.NewReader(rule)) {
		return nil, fmt.Errorf("invalid JSON logic filter: %v", string(rule))
	}
	return func(r Record) (bool, error) {
		data, err := json.Marshal(r)
		if err != nil {
			return false, err
		}
		var result bytes.Buffer
		if err = jsonlogic.Apply(bytes.NewReader(rule), bytes.NewReader(data), &result); err != nil {
			return false, fmt.Errorf("error applying JSON logic: %v", err)
		}
		return strings.TrimSpace(result.String()) == "true", nil
	}, nil
}
