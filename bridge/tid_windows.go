//go:build windows

package bridge

import "golang.org/x/sys/windows"

const threadIDSupported = true

func currentThreadID() int {
	return int(windows.GetCurrentThreadId())
}
