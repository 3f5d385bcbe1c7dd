//go:build !linux && !windows

package bridge

// No portable OS thread id syscall here; Config.ThreadID must be injected.
const threadIDSupported = false

func currentThreadID() int {
	return 0
}
