package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

// Request is a parsed lookup invocation: one root and the names to resolve
// against it.
type Request struct {
	Root  string
	Names []string
	// Depth is how many directory levels to attach below Root. Zero keeps a
	// bare root, negative walks everything.
	Depth int
}

// ParseArgs expects the root directory followed by one or more names. The
// root is cleaned but not required to exist; a missing root is reported as
// not alive by the lookup itself.
func ParseArgs(args []string, depth int) (*Request, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<root>", Cause: "no root provided"}
	}
	if len(args) == 1 {
		return nil, &ValidationError{Arg: "<name>", Cause: "no names provided"}
	}
	if depth < -1 {
		return nil, &ValidationError{Arg: fmt.Sprint(depth), Cause: "depth must be -1 or greater"}
	}

	root := strings.TrimSpace(args[0])
	if root == "" {
		return nil, &ValidationError{Arg: args[0], Cause: "empty root"}
	}

	req := &Request{
		Root:  filepath.Clean(root),
		Depth: depth,
	}

	for _, raw := range args[1:] {
		if err := ValidateName(raw); err != nil {
			return nil, err
		}
		req.Names = append(req.Names, raw)
	}

	return req, nil
}

// ValidateName rejects names that would resolve outside the node they are
// looked up under.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Arg: name, Cause: "empty name"}
	}
	if filepath.IsAbs(name) {
		return &ValidationError{Arg: name, Cause: "absolute names are not allowed"}
	}

	clean := filepath.ToSlash(filepath.Clean(name))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return &ValidationError{Arg: name, Cause: "name escapes its directory"}
	}

	return nil
}
