//go:build darwin

package util

import (
	"fmt"
	"path/filepath"
	"syscall"
)

// DetectNetworkFilesystem checks if a path is on a network-mounted filesystem
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(absPath, &stat); err != nil {
		return nil, fmt.Errorf("failed to stat filesystem: %w", err)
	}

	info := &NetworkInfo{}
	fsType := int8String(stat.Fstypename[:])
	if isNetworkFSType(fsType) {
		info.IsNetwork = true
		info.Protocol = fsType
		info.MountPath = int8String(stat.Mntonname[:])
	}
	return info, nil
}

// int8String converts a NUL-terminated C char array
func int8String(arr []int8) string {
	b := make([]byte, 0, len(arr))
	for _, c := range arr {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
