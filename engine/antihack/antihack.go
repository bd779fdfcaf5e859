// Package antihack prepends a prologue that nullifies exit(0)-style
// shortcuts before executing judged user code, and rejects completions that
// literally call exit(0).
package antihack

import "regexp"

var exit0RE = regexp.MustCompile(`exit\(\s*0\s*\)`)

const pyHeader = `
# --- anti-hack code begin
import os
import sys
exit = None
os._exit = None
sys.exit = None
# --- anti-hack code end
`

const cppHeader = `
// --- anti-hack code begin
#include <cstdlib>

void exit(int) {
    std::abort();
}
// --- anti-hack code end
`

// Antihack is the per-language prologue/judge pair.
type Antihack interface {
	ExpandCode(code string) string
	Judge(code string) bool
}

type python struct{}

func (python) ExpandCode(code string) string { return pyHeader + "\n\n" + code }
func (python) Judge(code string) bool        { return !exit0RE.MatchString(code) }

type cpp struct{}

func (cpp) ExpandCode(code string) string { return cppHeader + "\n\n" + code }
func (cpp) Judge(code string) bool        { return !exit0RE.MatchString(code) }

// Registry maps language tags to their Antihack implementation.
var Registry = map[string]Antihack{
	"python": python{},
	"cpp":    cpp{},
}

// Apply expands code with the registered prologue for language, if any,
// otherwise returns code unchanged. Judge should be called first; Apply
// does not re-check exit(0).
func Apply(language, code string) string {
	if a, ok := Registry[language]; ok {
		return a.ExpandCode(code)
	}
	return code
}

// Judge reports whether code passes the antihack static check for
// language. Languages with no registered Antihack always pass.
func Judge(language, code string) bool {
	if a, ok := Registry[language]; ok {
		return a.Judge(code)
	}
	return true
}
