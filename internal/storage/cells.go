package storage

import (
	"encoding/json"
	"fmt"
)

// EncodeCells serializes a row or header for SQL backends that keep cells in a single column.
func EncodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("failed to encode cells: %w", err)
	}
	return string(data), nil
}

// DecodeCells is the inverse of EncodeCells.
func DecodeCells(data string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(data), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode cells: %w", err)
	}
	return cells, nil
}
