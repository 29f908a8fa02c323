package container

import (
	"fmt"
	"strings"
)

// SplitPath splits an absolute or root-relative path into its components.
// "/" and "" both name the root and yield no components.
func SplitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CleanPath returns p with a single leading slash and no trailing slash.
func CleanPath(p string) string {
	return "/" + strings.Join(SplitPath(p), "/")
}

// JoinPath appends name to the group path parent.
func JoinPath(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

// checkPath rejects empty paths and "." or ".." components, which the
// format does not interpret.
func checkPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, s := range SplitPath(p) {
		if s == "." || s == ".." {
			return fmt.Errorf("%w: %q has a %q component", ErrInvalidPath, p, s)
		}
	}
	return nil
}

// parentAndName splits p into its parent group path and final name.
func parentAndName(p string) (string, string, error) {
	if err := checkPath(p); err != nil {
		return "", "", err
	}
	parts := SplitPath(p)
	if len(parts) == 0 {
		return "", "", fmt.Errorf("%w: the root group has no name", ErrInvalidPath)
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}
