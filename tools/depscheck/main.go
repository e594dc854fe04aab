package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// layerRule forbids packages matching pattern from importing any of the
// listed prefixes.
type layerRule struct {
	pattern   string
	forbidden []string
}

const module = "tilewalk/client"

// The movement core stays transport and process agnostic.
var rules = []layerRule{
	{
		pattern: "./internal/grid/...",
		forbidden: []string{
			module + "/internal/motion",
			module + "/internal/movement",
			module + "/internal/net",
		},
	},
	{
		pattern: "./internal/movement/...",
		forbidden: []string{
			module + "/internal/net",
			module + "/internal/app",
			module + "/internal/config",
		},
	},
	{
		pattern: "./internal/animation/...",
		forbidden: []string{
			module + "/internal/movement",
			module + "/internal/net",
		},
	},
	{
		pattern: "./internal/pathfinding/...",
		forbidden: []string{
			module + "/internal/movement",
			module + "/internal/net",
		},
	},
}

func main() {
	var violations []string
	for _, rule := range rules {
		found, err := check(rule)
		if err != nil {
			fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
			os.Exit(1)
		}
		violations = append(violations, found...)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check(rule layerRule) ([]string, error) {
	cmd := exec.Command("go", "list", "-json", rule.pattern)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		return nil, fmt.Errorf("failed to list %s: %w", rule.pattern, err)
	}
	return violations(bytes.NewReader(output), rule.forbidden)
}

func violations(r io.Reader, forbidden []string) ([]string, error) {
	decoder := json.NewDecoder(r)
	var found []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return found, nil
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		for _, imp := range pkg.Imports {
			for _, prefix := range forbidden {
				if imp == prefix || strings.HasPrefix(imp, prefix+"/") {
					found = append(found, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
}
