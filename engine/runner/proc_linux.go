//go:build linux

package runner

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// descendants walks /proc to find every PID whose ancestry passes through
// pid, recursively. Best-effort: processes that exit mid-scan are skipped.
func descendants(pid int) []int {
	children := map[int][]int{}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	for _, e := range entries {
		childPID := atoiOrZero(e.Name())
		if childPID == 0 {
			continue
		}
		ppid := readPPID(childPID)
		if ppid > 0 {
			children[ppid] = append(children[ppid], childPID)
		}
	}
	var out []int
	var walk func(int)
	walk = func(p int) {
		for _, c := range children[p] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(pid)
	return out
}

func readPPID(pid int) int {
	f, err := os.Open(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		return 0
	}
	line := scanner.Text()
	// Fields after the command name (which may contain spaces/parens) are
	// state, ppid, ... at fixed offsets from the closing paren.
	idx := strings.LastIndex(line, ")")
	if idx < 0 || idx+2 >= len(line) {
		return 0
	}
	fields := strings.Fields(line[idx+2:])
	if len(fields) < 2 {
		return 0
	}
	ppid, _ := strconv.Atoi(fields[1])
	return ppid
}
