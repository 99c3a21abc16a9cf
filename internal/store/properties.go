package store

import (
	"encoding/json"
	"fmt"
)

// wireValue is the JSON-on-the-wire shape for a PropertyValue, stored in the
// classes.properties_blob column. Using a tagged struct (rather than Go's
// naked interface{} for the map) keeps the round-trip in spec.md §8
// ("serialising a PropertyValue to the store blob and deserialising back
// yields an equal value for every variant") exact, including the
// distinction between Number and numeric-looking String.
type wireValue struct {
	Kind string               `json:"kind"`
	Str  string               `json:"str,omitempty"`
	Num  float64              `json:"num,omitempty"`
	Bool bool                 `json:"bool,omitempty"`
	Arr  []wireValue          `json:"arr,omitempty"`
	Obj  map[string]wireValue `json:"obj,omitempty"`
	Ref  string               `json:"ref,omitempty"`
}

func toWire(v PropertyValue) wireValue {
	w := wireValue{Kind: string(v.Kind)}
	switch v.Kind {
	case PropString:
		w.Str = v.Str
	case PropNumber:
		w.Num = v.Num
	case PropBoolean:
		w.Bool = v.Bool
	case PropArray:
		w.Arr = make([]wireValue, len(v.Arr))
		for i, item := range v.Arr {
			w.Arr[i] = toWire(item)
		}
	case PropObject:
		w.Obj = make(map[string]wireValue, len(v.Obj))
		for k, item := range v.Obj {
			w.Obj[k] = toWire(item)
		}
	case PropClassRef:
		w.Ref = v.Ref
	}
	return w
}

func fromWire(w wireValue) PropertyValue {
	v := PropertyValue{Kind: PropertyKind(w.Kind)}
	switch v.Kind {
	case PropString:
		v.Str = w.Str
	case PropNumber:
		v.Num = w.Num
	case PropBoolean:
		v.Bool = w.Bool
	case PropArray:
		v.Arr = make([]PropertyValue, len(w.Arr))
		for i, item := range w.Arr {
			v.Arr[i] = fromWire(item)
		}
	case PropObject:
		v.Obj = make(map[string]PropertyValue, len(w.Obj))
		for k, item := range w.Obj {
			v.Obj[k] = fromWire(item)
		}
	case PropClassRef:
		v.Ref = w.Ref
	}
	return v
}

// wireProperties is the on-disk shape: ordered keys plus the value map,
// so re-decoding preserves insertion order exactly (needed for the
// manifest/store idempotence law in spec.md §8).
type wireProperties struct {
	Keys   []string             `json:"keys"`
	Values map[string]wireValue `json:"values"`
}

// MarshalProperties serialises a Properties set to its store blob form.
func MarshalProperties(p *Properties) (string, error) {
	if p == nil || p.Len() == 0 {
		return "{}", nil
	}
	wp := wireProperties{Keys: p.Keys, Values: make(map[string]wireValue, len(p.Values))}
	for k, v := range p.Values {
		wp.Values[k] = toWire(v)
	}
	b, err := json.Marshal(wp)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(b), nil
}

// UnmarshalProperties deserialises a store blob back into a Properties set.
func UnmarshalProperties(blob string) (*Properties, error) {
	if blob == "" || blob == "{}" {
		return NewProperties(), nil
	}
	var wp wireProperties
	if err := json.Unmarshal([]byte(blob), &wp); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	p := NewProperties()
	for _, k := range wp.Keys {
		if wv, ok := wp.Values[k]; ok {
			p.Set(k, fromWire(wv))
		}
	}
	return p, nil
}
