package runner

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// workloadDenylist is the set of command-line substrings that mark a process
// as a sandbox workload worth sweeping if left behind by a hostile request.
var workloadDenylist = []string{"node", "python", "go", "npm", "bash", "dotnet", "g++", "test", "flask", "sleep"}

// killTree kills pid and every descendant, SIGKILL, looping until each PID's
// /proc entry disappears (at most 50 retries per PID). Errors are ignored: a
// failed kill must never block the caller's return.
func killTree(pid int) {
	for _, p := range append(descendants(pid), pid) {
		killUntilGone(p)
	}
}

func killUntilGone(pid int) {
	if pid <= 0 {
		return
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Kill()
	for i := 0; i < 50 && processAlive(pid); i++ {
		_ = proc.Kill()
	}
}

func processAlive(pid int) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	return err == nil
}

// sweepOrphans terminates any process whose pid exceeds the server's own pid,
// is not one of the runner's known children, and whose command line matches
// the workload denylist.
func sweepOrphans(known map[int]struct{}, logger zerolog.Logger) {
	serverPID := os.Getpid()
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return
	}
	for _, e := range entries {
		pid := atoiOrZero(e.Name())
		if pid <= serverPID {
			continue
		}
		if _, ok := known[pid]; ok {
			continue
		}
		cmdline, err := os.ReadFile(filepath.Join("/proc", e.Name(), "cmdline"))
		if err != nil {
			continue
		}
		cmd := strings.ToLower(strings.ReplaceAll(string(cmdline), "\x00", " "))
		matched := false
		for _, w := range workloadDenylist {
			if strings.Contains(cmd, w) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if proc, err := os.FindProcess(pid); err == nil {
			if err := proc.Kill(); err == nil {
				logger.Info().Int("pid", pid).Str("cmd", cmd).Msg("swept orphan workload process")
			}
		}
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// bashExpectedMD5 is the known-good hash of the bash binary shipped in the
// sandbox image.
const bashExpectedMD5 = "23c415748ff840b296d0b93f98649dec"

// ensureBashIntegrity verifies /bin/bash against bashExpectedMD5 and restores
// it from an internal reference copy if tampered. Only meaningful when the
// sandbox image actually ships bash at that path; callers gate this behind
// config.RestoreBash.
func ensureBashIntegrity(logger zerolog.Logger) {
	const bashPath = "/bin/bash"
	const internalCopy = "/opt/sandboxd/bin/bash"
	if sum, err := fileMD5(bashPath); err == nil && sum == bashExpectedMD5 {
		return
	}
	logger.Warn().Msg("/bin/bash modified, attempting restore")
	internalSum, err := fileMD5(internalCopy)
	if err != nil {
		logger.Error().Err(err).Msg("internal bash reference copy not found")
		return
	}
	if internalSum != bashExpectedMD5 {
		logger.Error().Msg("internal bash reference copy itself is modified")
		return
	}
	if err := copyFile(internalCopy, bashPath); err != nil {
		logger.Error().Err(err).Msg("failed to restore bash integrity")
	}
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
