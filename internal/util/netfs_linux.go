//go:build linux

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Linux VFS magic numbers of network filesystems
var networkMagic = map[uint32]string{
	0x6969:     "nfs",
	0xff534d42: "cifs",
	0x517b:     "smb",
	0xfe534d42: "smb2",
	0x564c:     "ncp",
}

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
	if proto, ok := networkMagic[uint32(stat.Type)]; ok {
		info.IsNetwork = true
		info.Protocol = proto
	}

	// FUSE mounts (sshfs, rclone) only show up by name
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return info, nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return info, nil
	}
	if mp, fsType := mountFor(absPath, mounts); mp != "" {
		info.MountPath = mp
		if isNetworkFSType(fsType) {
			info.IsNetwork = true
			info.Protocol = fsType
		}
	}

	return info, nil
}
