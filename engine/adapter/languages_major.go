package adapter

import (
	"fmt"
	"path/filepath"
	"strings"

	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/orchestrator"
)

func runPython(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".py", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "python " + src, Cwd: dir, Env: pythonRuntimeEnv(depsRoot)}, nil
}

func runPytest(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".py", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "pytest " + src, Cwd: dir, Env: pythonRuntimeEnv(depsRoot)}, nil
}

func runCPP(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".cpp", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	flags := strings.Join(probeCXXFlags(), " ")
	compile := fmt.Sprintf("g++ -std=c++17 %s -o test %s", src, flags)
	return orchestrator.Spec{CompileCmd: compile, RunCmd: "./test", Cwd: dir}, nil
}

func runGo(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	if err := copyRuntimeDir(depsRoot, "go", dir); err != nil {
		return orchestrator.Spec{}, err
	}
	src, err := writeSource(dir, ".go", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{CompileCmd: "go build -o out " + src, RunCmd: "./out", Cwd: dir}, nil
}

func runGoTest(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	if err := copyRuntimeDir(depsRoot, "go", dir); err != nil {
		return orchestrator.Spec{}, err
	}
	src, err := writeSource(dir, "_test.go", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "go test " + src, Cwd: dir}, nil
}

func runJava(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	if err := symlinkInto(filepath.Join(depsRoot, "java", "javatuples-1.2.jar"), dir, "javatuples-1.2.jar"); err != nil {
		return orchestrator.Spec{}, err
	}
	jars := []string{".", "javatuples-1.2.jar"}
	for name := range req.Files {
		if strings.HasSuffix(name, ".jar") {
			jars = append(jars, name)
		}
	}
	cpArgs := "-cp " + strings.Join(jars, ":")
	className := findJavaPublicClassName(req.Code)
	if className == "" {
		className = "Main"
	}
	if _, err := writeNamed(dir, className+".java", req.Code); err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{
		CompileCmd: fmt.Sprintf("javac %s %s.java", cpArgs, className),
		RunCmd:     fmt.Sprintf("java %s -ea %s", cpArgs, className),
		Cwd:        dir,
	}, nil
}

func runJUnit(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	const junitJar = "junit-platform-console-standalone-1.8.2.jar"
	deps := []string{"junit-jupiter-api-5.11.0-javadoc.jar"}
	javaDeps := filepath.Join(depsRoot, "java")
	for _, dep := range deps {
		if err := symlinkInto(filepath.Join(javaDeps, dep), dir, dep); err != nil {
			return orchestrator.Spec{}, err
		}
	}
	if err := symlinkInto(filepath.Join(javaDeps, junitJar), dir, junitJar); err != nil {
		return orchestrator.Spec{}, err
	}
	jars := append([]string{".", junitJar}, deps...)
	for name := range req.Files {
		if strings.HasSuffix(name, ".jar") {
			jars = append(jars, name)
		}
	}
	cpArgs := strings.Join(jars, ":")
	if req.Code != "" {
		className := findJavaPublicClassName(req.Code)
		if className == "" {
			className = "Main"
		}
		if _, err := writeNamed(dir, className+".java", req.Code); err != nil {
			return orchestrator.Spec{}, err
		}
	}
	return orchestrator.Spec{
		CompileCmd: "javac -cp " + cpArgs + " *.java",
		RunCmd:     fmt.Sprintf("java -jar ./%s --class-path %s --scan-class-path", junitJar, cpArgs),
		Cwd:        dir,
	}, nil
}

func runNodeJS(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	if err := symlinkInto(filepath.Join(depsRoot, "node", "node_modules"), dir, "node_modules"); err != nil {
		return orchestrator.Spec{}, err
	}
	src, err := writeSource(dir, ".js", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "node " + src, Cwd: dir}, nil
}

func runTypeScript(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	if err := symlinkInto(filepath.Join(depsRoot, "node", "node_modules"), dir, "node_modules"); err != nil {
		return orchestrator.Spec{}, err
	}
	src, err := writeSource(dir, ".ts", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "tsx " + src, Cwd: dir}, nil
}

func runJest(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	nodeDeps := filepath.Join(depsRoot, "node")
	for _, name := range []string{"node_modules", "package.json", "babel.config.js"} {
		if err := symlinkInto(filepath.Join(nodeDeps, name), dir, name); err != nil {
			return orchestrator.Spec{}, err
		}
	}
	if _, err := writeSource(dir, ".test.ts", req.Code); err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "npm run test", Cwd: dir}, nil
}

func runCSharp(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	if _, err := writeNamed(dir, "Program.cs", req.Code); err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{
		CompileCmd: "dotnet new console -o " + dir,
		RunCmd:     "dotnet run --project " + dir,
		Cwd:        dir,
	}, nil
}

func runPHP(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	code := req.Code
	if !strings.Contains(code, "<?php") {
		code = "<?php\n" + code
	}
	src, err := writeSource(dir, ".php", code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "php -f " + src, Cwd: dir}, nil
}

func runBash(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".sh", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "/bin/bash " + src, Cwd: dir}, nil
}

func runRust(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".rs", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{CompileCmd: "rustc " + src + " -o test", RunCmd: "./test", Cwd: dir}, nil
}

func copyRuntimeDir(depsRoot, name, dstDir string) error {
	srcDir := filepath.Join(depsRoot, name)
	entries, err := readDirSafe(srcDir)
	if err != nil {
		return nil // shared runtime dir is optional; adapters degrade to bare toolchain
	}
	for _, e := range entries {
		if err := copyInto(filepath.Join(srcDir, e), dstDir, e); err != nil {
			return err
		}
	}
	return nil
}
