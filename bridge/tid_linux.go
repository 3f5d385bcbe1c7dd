//go:build linux

package bridge

import "golang.org/x/sys/unix"

const threadIDSupported = true

func currentThreadID() int {
	return unix.Gettid()
}
