package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Properties turns val's JSON fields into a node property map for a $param.
// Whole numbers come out as int64, the only integer type the driver sends.
func Properties(val any) (Params, error) {
	if val == nil {
		return nil, errors.New("val in Properties can't be nil")
	}
	m, err := toMap(val)
	if err != nil {
		return nil, err
	}
	props := make(Params, len(m))
	for key, value := range m {
		property, ok := toProperty(value)
		if !ok {
			return nil, fmt.Errorf("property %q: %T can't be stored on a node", key, value)
		}
		props[key] = property
	}
	return props, nil
}

func toMap(in any) (map[string]any, error) {
	inrec, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshalling %T: %w", in, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(inrec))
	decoder.UseNumber()
	var mp map[string]any
	if err = decoder.Decode(&mp); err != nil {
		return nil, fmt.Errorf("%T is not an object: %w", in, err)
	}
	return mp, nil
}

func toProperty(value any) (any, bool) {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		return f, err == nil
	case []any:
		elements := make([]any, 0, len(v))
		for _, element := range v {
			property, ok := toProperty(element)
			if !ok {
				return nil, false
			}
			elements = append(elements, property)
		}
		return elements, true
	case map[string]any:
		return nil, false
	default:
		return v, true
	}
}

func ParseAll[KeyValue any](key string, records []*neo4j.Record) ([]KeyValue, error) {
	results := make([]KeyValue, 0, len(records))
	for _, record := range records {
		result, err := parseRecord[KeyValue](key, record)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func parseRecord[KeyValue any](key string, record *neo4j.Record) (KeyValue, error) {
	var result KeyValue
	get, ok := record.Get(key)
	if !ok {
		return result, fmt.Errorf("invalid key %q", key)
	}
	node, ok := get.(neo4j.Node)
	if !ok {
		return result, fmt.Errorf("key %q is a %T, not a node", key, get)
	}
	return Decode[KeyValue](node.Props)
}

func Decode[RESULT any](props map[string]any) (RESULT, error) {
	var result RESULT
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &result,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return result, err
	}
	if err = decoder.Decode(props); err != nil {
		return result, fmt.Errorf("decoding node: %w", err)
	}
	return result, nil
}
