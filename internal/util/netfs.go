package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NetworkInfo describes whether a path lives on a network mount
type NetworkInfo struct {
	IsNetwork bool   // Whether the filesystem is network-mounted
	Protocol  string // nfs, cifs, smbfs, ... or empty if local
	MountPath string // Mount point of the filesystem, when known
}

// IsNetworkPath reports whether path is on a network filesystem
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		return false
	}
	return info.IsNetwork
}

// DatabaseOnNetwork reports whether a database file (which may not exist
// yet) would be created on a network filesystem
func DatabaseOnNetwork(dbPath string) bool {
	if _, err := os.Stat(dbPath); err == nil {
		return IsNetworkPath(dbPath)
	}
	return IsNetworkPath(filepath.Dir(dbPath))
}

var networkFSNames = []string{"nfs", "cifs", "smb", "ncpfs", "afpfs", "webdav", "fuse.sshfs", "fuse.rclone"}

func isNetworkFSType(name string) bool {
	name = strings.ToLower(name)
	for _, n := range networkFSNames {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// parseMounts reads /proc/mounts format: device mountpoint fstype options ...
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[fields[1]] = fields[2]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}

// mountFor returns the longest mount point containing path and its type
func mountFor(path string, mounts map[string]string) (string, string) {
	best := ""
	for mp := range mounts {
		within := path == mp || mp == "/" || strings.HasPrefix(path, strings.TrimSuffix(mp, "/")+"/")
		if within && len(mp) > len(best) {
			best = mp
		}
	}
	if best == "" {
		return "", ""
	}
	return best, mounts[best]
}
