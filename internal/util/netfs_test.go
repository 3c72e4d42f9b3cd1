package util

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMounts(t *testing.T) {
	input := `sysfs /sys sysfs rw,nosuid 0 0
/dev/sda1 / ext4 rw,relatime 0 0
nas:/volume1/music /mnt/nas nfs4 rw,vers=4.1 0 0
//nas/share /mnt/nas2 cifs rw 0 0
user@host: /mnt/remote fuse.sshfs rw 0 0
garbage
`
	mounts, err := parseMounts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed to parse mounts: %v", err)
	}
	if len(mounts) != 5 {
		t.Fatalf("expected 5 mounts, got %d: %v", len(mounts), mounts)
	}

	tests := []struct {
		path      string
		wantMount string
		network   bool
	}{
		{"/home/franz/catalog.db", "/", false},
		{"/mnt/nas/catalog.db", "/mnt/nas", true},
		{"/mnt/nas2/catalog.db", "/mnt/nas2", true},
		{"/mnt/nasty/catalog.db", "/", false},
		{"/mnt/remote/music", "/mnt/remote", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			mp, fsType := mountFor(tt.path, mounts)
			if mp != tt.wantMount {
				t.Errorf("mountFor(%s) = %s, want %s", tt.path, mp, tt.wantMount)
			}
			if got := isNetworkFSType(fsType); got != tt.network {
				t.Errorf("isNetworkFSType(%s) = %v, want %v", fsType, got, tt.network)
			}
		})
	}
}

func TestDetectNetworkFilesystem_TempDir(t *testing.T) {
	dir := t.TempDir()

	info, err := DetectNetworkFilesystem(dir)
	if err != nil {
		t.Fatalf("DetectNetworkFilesystem failed for temp dir: %v", err)
	}
	// Temp dirs are almost always local; only log
	if info.IsNetwork {
		t.Logf("temp directory is on network storage (%s)", info.Protocol)
	}

	// A database that does not exist yet is judged by its directory
	if DatabaseOnNetwork(filepath.Join(dir, "new.db")) != info.IsNetwork {
		t.Error("expected DatabaseOnNetwork to follow the parent directory")
	}
}

func TestDetectNetworkFilesystem_NonExistent(t *testing.T) {
	if _, err := DetectNetworkFilesystem("/this/path/does/not/exist/hopefully"); err == nil {
		t.Error("expected error for non-existent path")
	}
}
