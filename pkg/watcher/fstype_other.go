//go:build !linux

package watcher

// DetectFilesystemType has no portable implementation outside linux; the
// watcher then relies on fsnotify working, with polling as the runtime
// fallback when it does not.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	return FSTypeLocal
}
