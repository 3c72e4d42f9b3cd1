//go:build !linux && !darwin

package util

import (
	"fmt"
	"os"
)

// DetectNetworkFilesystem reports every existing path as local on
// platforms without statfs
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	return &NetworkInfo{}, nil
}
