package process

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ProcFS enumerates loaded modules by parsing /proc/<pid>/maps. Only
// meaningful on Linux; on other platforms Modules returns the open error.
type ProcFS struct {
	pid int
}

// Self enumerates the modules of the current process.
func Self() *ProcFS {
	return &ProcFS{pid: os.Getpid()}
}

// ForPID enumerates the modules of an arbitrary process. Reading another
// process's maps requires the usual ptrace-scope privileges.
func ForPID(pid int) *ProcFS {
	return &ProcFS{pid: pid}
}

func (p *ProcFS) Modules() ([]Module, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", p.pid))
	if err != nil {
		return nil, fmt.Errorf("open maps for pid %d: %w", p.pid, err)
	}
	defer f.Close()
	return parseMaps(f)
}

// parseMaps coalesces the file-backed mappings of a maps table into one
// Module per backing file: lowest base address, full extent to the highest
// mapped end.
func parseMaps(r io.Reader) ([]Module, error) {
	type extent struct {
		low, high uintptr
	}
	extents := make(map[string]extent)
	var order []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		// addr-range perms offset dev inode pathname
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		path := fields[5]
		if !strings.HasPrefix(path, "/") {
			// anonymous, [heap], [stack], [vdso], ...
			continue
		}

		lowStr, highStr, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		low, err := strconv.ParseUint(lowStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parse maps address %q: %w", fields[0], err)
		}
		high, err := strconv.ParseUint(highStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parse maps address %q: %w", fields[0], err)
		}

		e, seen := extents[path]
		if !seen {
			e = extent{low: uintptr(low), high: uintptr(high)}
			order = append(order, path)
		} else {
			if uintptr(low) < e.low {
				e.low = uintptr(low)
			}
			if uintptr(high) > e.high {
				e.high = uintptr(high)
			}
		}
		extents[path] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan maps: %w", err)
	}

	modules := make([]Module, 0, len(order))
	for _, path := range order {
		e := extents[path]
		modules = append(modules, Module{
			Name: filepath.Base(path),
			Path: path,
			Base: e.low,
			Size: uint64(e.high - e.low),
		})
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Base < modules[j].Base })
	return modules, nil
}
