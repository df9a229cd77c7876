package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes the usual damage in hand-rolled API payloads:
// single quotes, unquoted keys, trailing commas, unclosed brackets,
// surrounding noise.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON converts Hjson (comments, unquoted strings, optional commas)
// into standard JSON.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("json marshal failed: %w", err)
	}
	return string(out), nil
}

// DecodeLenient unmarshals data into v, trying in order:
// 1. Standard JSON
// 2. JSON repair
// 3. Hjson
func DecodeLenient(data []byte, v interface{}) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	firstErr := err

	if repaired, err := RepairJSON(string(data)); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	if converted, err := ParseHJSON(string(data)); err == nil {
		if err := json.Unmarshal([]byte(converted), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("decode failed with every strategy: %w", firstErr)
}
