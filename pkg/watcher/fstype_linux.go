//go:build linux

package watcher

import (
	"os"
	"path/filepath"
	"syscall"
)

// Magic numbers from statfs(2).
const (
	nfsSuperMagic   = 0x6969
	smbSuperMagic   = 0x517b
	smb2SuperMagic  = 0xfe534d42
	cifsSuperMagic  = 0xff534d42
	fuseSuperMagic  = 0x65735546
	extSuperMagic   = 0xef53
	btrfsSuperMagic = 0x9123683e
	xfsSuperMagic   = 0x58465342
	tmpfsSuperMagic = 0x01021994
)

// DetectFilesystemType classifies the filesystem holding path. A missing
// path is classified via its parent directory. Returns FSTypeUnknown when
// nothing can be determined.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}

	target := path
	if _, err := os.Stat(target); err != nil {
		target = filepath.Dir(path)
	}

	var st syscall.Statfs_t
	if err := syscall.Statfs(target, &st); err != nil {
		return FSTypeUnknown
	}

	switch uint32(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, smb2SuperMagic, cifsSuperMagic:
		return FSTypeSMB
	case fuseSuperMagic:
		// sshfs mounts report the generic FUSE magic; treat them the same.
		return FSTypeFUSE
	case extSuperMagic, btrfsSuperMagic, xfsSuperMagic, tmpfsSuperMagic:
		return FSTypeLocal
	default:
		return FSTypeLocal
	}
}
