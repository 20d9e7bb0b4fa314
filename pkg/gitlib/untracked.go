package gitlib

import (
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

const configShowUntracked = "status.showUntrackedFiles"

// UntrackedPolicy controls whether status scans report untracked files and
// whether they descend into untracked directories.
type UntrackedPolicy uint8

const (
	// UntrackedFromConfig defers to the repository's status.showUntrackedFiles.
	UntrackedFromConfig UntrackedPolicy = iota
	// UntrackedNo hides untracked files.
	UntrackedNo
	// UntrackedNormal shows untracked files and directories without recursing.
	UntrackedNormal
	// UntrackedAll shows every untracked file, recursing into directories.
	UntrackedAll
)

// ParseUntrackedPolicy maps the git config vocabulary ("no", "normal", "all")
// to a policy. The empty string selects UntrackedFromConfig.
func ParseUntrackedPolicy(s string) (UntrackedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return UntrackedFromConfig, nil
	case "no", "false":
		return UntrackedNo, nil
	case "normal":
		return UntrackedNormal, nil
	case "all", "true":
		return UntrackedAll, nil
	default:
		return UntrackedFromConfig, fmt.Errorf("unknown untracked files mode %q", s)
	}
}

func (p UntrackedPolicy) String() string {
	switch p {
	case UntrackedNo:
		return "no"
	case UntrackedNormal:
		return "normal"
	case UntrackedAll:
		return "all"
	case UntrackedFromConfig:
		return "config"
	default:
		return "unknown"
	}
}

// IncludeUntracked reports whether untracked files are listed.
func (p UntrackedPolicy) IncludeUntracked() bool {
	return p == UntrackedNormal || p == UntrackedAll
}

// RecurseUntrackedDirs reports whether untracked directories are expanded.
func (p UntrackedPolicy) RecurseUntrackedDirs() bool {
	return p == UntrackedAll
}

// resolve replaces UntrackedFromConfig with the repository setting. A missing
// or unrecognized setting means UntrackedAll.
func (p UntrackedPolicy) resolve(repo *Repository) (UntrackedPolicy, error) {
	if p != UntrackedFromConfig {
		return p, nil
	}

	cfg, err := repo.repo.Config()
	if err != nil {
		return UntrackedAll, fmt.Errorf("open repository config: %w", err)
	}
	defer cfg.Free()

	value, err := cfg.LookupString(configShowUntracked)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return UntrackedAll, nil
		}

		return UntrackedAll, fmt.Errorf("read %s: %w", configShowUntracked, err)
	}

	switch strings.ToLower(value) {
	case "no":
		return UntrackedNo, nil
	case "normal":
		return UntrackedNormal, nil
	default:
		return UntrackedAll, nil
	}
}

func (p UntrackedPolicy) statusFlags() git2go.StatusOpt {
	var flags git2go.StatusOpt

	if p.IncludeUntracked() {
		flags |= git2go.StatusOptIncludeUntracked
	}

	if p.RecurseUntrackedDirs() {
		flags |= git2go.StatusOptRecurseUntrackedDirs
	}

	return flags
}
