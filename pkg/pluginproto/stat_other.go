//go:build !linux

package pluginproto

import (
	"os"
	"time"
)

func accessTime(_ os.FileInfo, fallback time.Time) time.Time {
	return fallback
}

func changeTime(_ os.FileInfo, fallback time.Time) time.Time {
	return fallback
}
