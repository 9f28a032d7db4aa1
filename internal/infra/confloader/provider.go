package confloader

import (
	"errors"
	"strings"
)

// errReadBytesNotSupported is returned by mapProvider.ReadBytes.
var errReadBytesNotSupported = errors.New("confloader: map provider only supports Read")

// mapProvider is a koanf provider over an in-memory map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytesNotSupported
}

// Read returns the map. Dotted keys ("log.level") are unflattened by koanf.
func (m mapProvider) Read() (map[string]any, error) {
	return unflatten(m), nil
}

func unflatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		parts := strings.Split(k, ".")
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return out
}
