package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sandboxd/config"
	"sandboxd/engine"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Runner.TmpRoot = filepath.Join(t.TempDir(), "tmp")
	return cfg
}

func TestBuildUnsupportedLanguage(t *testing.T) {
	_, _, err := Build(testConfig(t), engine.RunRequest{Language: "cobol"})
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestBuildPythonEmitsRunCommand(t *testing.T) {
	cfg := testConfig(t)
	spec, dir, err := Build(cfg, engine.RunRequest{Language: engine.LangPython, Code: "print(1)"})
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.Empty(t, spec.CompileCmd)
	require.Contains(t, spec.RunCmd, "python ")
	require.Equal(t, dir, spec.Cwd)
}

func TestBuildCPPHasCompileAndRunPhases(t *testing.T) {
	cfg := testConfig(t)
	spec, dir, err := Build(cfg, engine.RunRequest{
		Language: engine.LangCPP,
		Code:     "#include <iostream>\nint main(){std::cout<<123;}",
	})
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.Contains(t, spec.CompileCmd, "g++ -std=c++17")
	require.Equal(t, "./test", spec.RunCmd)
}

func TestBuildBashWrapsSourceFile(t *testing.T) {
	cfg := testConfig(t)
	spec, dir, err := Build(cfg, engine.RunRequest{Language: engine.LangBash, Code: "echo hi"})
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.True(t, strings.HasPrefix(spec.RunCmd, "/bin/bash "))
}

func TestBuildPHPPrependsOpenTagWhenMissing(t *testing.T) {
	cfg := testConfig(t)
	_, dir, err := Build(cfg, engine.RunRequest{Language: engine.LangPHP, Code: "echo 1;"})
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".php") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(string(data), "<?php"))
			found = true
		}
	}
	require.True(t, found, "expected a .php source file to be written")
}

func TestFindJavaPublicClassName(t *testing.T) {
	require.Equal(t, "Solution", findJavaPublicClassName("public final class Solution {}"))
	require.Equal(t, "", findJavaPublicClassName("class NoPublic {}"))
}

func TestFindScalaClassName(t *testing.T) {
	require.Equal(t, "Main", findScalaClassName("object Main extends App {}"))
	require.Equal(t, "", findScalaClassName("class NotAnObject {}"))
}

func TestAllLanguagesHaveAnAdapter(t *testing.T) {
	for lang := range engine.CPULanguages {
		_, ok := Table[lang]
		require.True(t, ok, "missing adapter for %v", lang)
	}
	for lang := range engine.GPULanguages {
		_, ok := Table[lang]
		require.True(t, ok, "missing adapter for %v", lang)
	}
}
