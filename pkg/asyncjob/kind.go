// Package asyncjob runs blocking repository queries off the UI goroutine.
//
// Each job kind owns one Slot. A Slot keeps the last completed
// (params, result) pair, lets at most one query run at a time, and reports
// every completion, successful or not, on a shared Notifier. Queries run on
// an injected Executor, normally a bounded Pool.
package asyncjob

// Kind tags the category of a job and of its completion notification.
type Kind uint8

// Job kinds known to the dashboard.
const (
	KindStatus Kind = iota
	KindCommitFiles
	KindDiff
	KindLog
	KindStashList
	KindWorktrees
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindCommitFiles:
		return "commit_files"
	case KindDiff:
		return "diff"
	case KindLog:
		return "log"
	case KindStashList:
		return "stash_list"
	case KindWorktrees:
		return "worktrees"
	default:
		return "unknown"
	}
}
