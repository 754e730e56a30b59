package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// num decodes a JSON number, a numeric string, or null. Null, empty strings
// and non-finite values decode to zero; set records whether a usable value
// was present.
type num struct {
	v   float64
	set bool
}

func (n *num) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = num{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = num{}
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q", s)
		}
		n.assign(f)
		return nil
	}
	if data[0] == 't' || data[0] == 'f' {
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			n.assign(1)
		} else {
			n.assign(0)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	n.assign(f)
	return nil
}

func (n *num) assign(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		*n = num{}
		return
	}
	*n = num{v: f, set: true}
}

func (n num) or(fallback float64) float64 {
	if !n.set {
		return fallback
	}
	return n.v
}

func (n num) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.v
	return &v
}

func floats(in []num) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, 0, len(in))
	for _, n := range in {
		if n.set {
			out = append(out, n.v)
		}
	}
	return out
}
