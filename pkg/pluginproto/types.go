package pluginproto

import (
	"os"
	"time"
)

// ProtocolVersion is the schema version stamped into every envelope.
// Decoders accept any version; fields they do not know are skipped.
const ProtocolVersion = 1

// EntryMetadata describes the file system facts a plugin may inspect.
// Timestamps are unix seconds; zero means unknown.
type EntryMetadata struct {
	Size        uint64
	Modified    int64
	Accessed    int64
	Created     int64
	IsDir       bool
	IsFile      bool
	IsSymlink   bool
	Permissions uint32
}

// DecoratedEntry is a listed file plus the custom fields plugins attached to it.
type DecoratedEntry struct {
	Path         string
	Metadata     EntryMetadata
	CustomFields map[string]string
}

// Clone returns a deep copy so plugin results never alias caller state.
func (e DecoratedEntry) Clone() DecoratedEntry {
	out := e
	if e.CustomFields != nil {
		out.CustomFields = make(map[string]string, len(e.CustomFields))
		for k, v := range e.CustomFields {
			out.CustomFields[k] = v
		}
	}
	return out
}

// Field returns a custom field and whether it was set.
func (e DecoratedEntry) Field(name string) (string, bool) {
	v, ok := e.CustomFields[name]
	return v, ok
}

// EntryFromFileInfo builds an undecorated entry for path from a stat result.
func EntryFromFileInfo(path string, info os.FileInfo) DecoratedEntry {
	mode := info.Mode()
	modified := info.ModTime()
	return DecoratedEntry{
		Path: path,
		Metadata: EntryMetadata{
			Size:        uint64(max(info.Size(), 0)),
			Modified:    unixOrZero(modified),
			Accessed:    unixOrZero(accessTime(info, modified)),
			Created:     unixOrZero(changeTime(info, modified)),
			IsDir:       mode.IsDir(),
			IsFile:      mode.IsRegular(),
			IsSymlink:   mode&os.ModeSymlink != 0,
			Permissions: uint32(mode.Perm()),
		},
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// ActionInfo is one entry of a plugin's self-described action catalog.
type ActionInfo struct {
	Name        string
	Usage       string
	Description string
	Examples    []string
}
