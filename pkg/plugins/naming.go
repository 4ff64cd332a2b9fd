package plugins

import (
	"runtime"
	"strings"
)

// librarySuffixes lists native library extensions per platform, preferred first.
func librarySuffixes(goos string) []string {
	switch goos {
	case "windows":
		return []string{".dll"}
	case "darwin":
		return []string{".so", ".dylib"}
	default:
		return []string{".so"}
	}
}

// IsLibraryFile reports whether a file name follows the native library
// naming convention of the running platform.
func IsLibraryFile(fileName string) bool {
	return isLibraryFile(runtime.GOOS, fileName)
}

func isLibraryFile(goos, fileName string) bool {
	_, ok := logicalName(goos, fileName)
	return ok
}

// LogicalName strips the platform prefix and suffix from a library file
// name: "libgit.so" and "git.so" are both "git".
func LogicalName(fileName string) string {
	name, ok := logicalName(runtime.GOOS, fileName)
	if !ok {
		return fileName
	}
	return name
}

func logicalName(goos, fileName string) (string, bool) {
	lower := strings.ToLower(fileName)
	for _, suffix := range librarySuffixes(goos) {
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		name := fileName[:len(fileName)-len(suffix)]
		if goos != "windows" && strings.HasPrefix(name, "lib") {
			if rest := name[3:]; rest != "" && !strings.HasPrefix(rest, ".") {
				name = rest
			}
		}
		if name == "" || strings.HasPrefix(name, ".") {
			return "", false
		}
		return name, true
	}
	return "", false
}

// LibraryFileName returns the file name a plugin called logical is built to
// on this platform.
func LibraryFileName(logical string) string {
	return logical + librarySuffixes(runtime.GOOS)[0]
}
