//go:build linux

package pluginproto

import (
	"os"
	"syscall"
	"time"
)

func accessTime(info os.FileInfo, fallback time.Time) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Atim.Unix())
	}
	return fallback
}

// changeTime stands in for creation time; linux stat has no birth time.
func changeTime(info os.FileInfo, fallback time.Time) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Unix())
	}
	return fallback
}
