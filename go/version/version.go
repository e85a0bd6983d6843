package version

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ShortLen matches `git rev-parse --short`.
const ShortLen = 7

// Placeholder is the token replaced with the build version inside app scripts.
const Placeholder = "%VERSION%"

// Short returns the abbreviated HEAD commit hash of the repository containing dir.
func Short(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String()[:ShortLen], nil
}

// Resolve returns override when set, otherwise the short HEAD hash of dir.
func Resolve(dir, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return Short(dir)
}
