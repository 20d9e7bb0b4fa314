package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// DiffDelta is one file entry of a diff.
type DiffDelta struct {
	Kind    StatusKind
	OldPath string
	NewPath string
	Binary  bool
}

// NumDeltas returns the number of deltas in the diff.
func (d *Diff) NumDeltas() (int, error) {
	numDeltas, err := d.diff.NumDeltas()
	if err != nil {
		return 0, fmt.Errorf("get num deltas: %w", err)
	}

	return numDeltas, nil
}

// Delta returns the delta at the given index.
func (d *Diff) Delta(index int) (DiffDelta, error) {
	delta, err := d.diff.Delta(index)
	if err != nil {
		return DiffDelta{}, fmt.Errorf("get delta %d: %w", index, err)
	}

	return deltaFrom(delta), nil
}

func deltaFrom(delta git2go.DiffDelta) DiffDelta {
	return DiffDelta{
		Kind:    statusKindFromDelta(delta.Status),
		OldPath: delta.OldFile.Path,
		NewPath: delta.NewFile.Path,
		Binary:  delta.Flags&git2go.DiffFlagBinary != 0,
	}
}

// Deltas returns every delta in diff order.
func (d *Diff) Deltas() ([]DiffDelta, error) {
	numDeltas, err := d.NumDeltas()
	if err != nil {
		return nil, err
	}

	deltas := make([]DiffDelta, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := d.Delta(i)
		if deltaErr != nil {
			return nil, deltaErr
		}

		deltas = append(deltas, delta)
	}

	return deltas, nil
}

// Items reports each delta as a StatusItem keyed by the path on the newer side.
func (d *Diff) Items() ([]StatusItem, error) {
	deltas, err := d.Deltas()
	if err != nil {
		return nil, err
	}

	items := make([]StatusItem, 0, len(deltas))
	for _, delta := range deltas {
		items = append(items, StatusItem{Path: delta.NewPath, Kind: delta.Kind})
	}

	return items, nil
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d == nil || d.diff == nil {
		return
	}

	err := d.diff.Free()
	d.diff = nil
	// Free() errors are non-actionable in cleanup.
	if err != nil {
		return
	}
}

// LineOrigin marks a patch line as context, addition or deletion.
type LineOrigin byte

const (
	// LineContext is an unchanged line.
	LineContext LineOrigin = ' '
	// LineAddition is an added line.
	LineAddition LineOrigin = '+'
	// LineDeletion is a removed line.
	LineDeletion LineOrigin = '-'
)

// MarshalText renders the origin as its patch prefix character.
func (o LineOrigin) MarshalText() ([]byte, error) {
	return []byte{byte(o)}, nil
}

// Line is one line of a hunk.
type Line struct {
	Origin    LineOrigin `json:"origin" yaml:"origin"`
	Content   string     `json:"content" yaml:"content"`
	OldLineno int        `json:"old_lineno" yaml:"old_lineno"`
	NewLineno int        `json:"new_lineno" yaml:"new_lineno"`
}

// Hunk is a contiguous block of changes.
type Hunk struct {
	Header   string `json:"header" yaml:"header"`
	OldStart int    `json:"old_start" yaml:"old_start"`
	OldLines int    `json:"old_lines" yaml:"old_lines"`
	NewStart int    `json:"new_start" yaml:"new_start"`
	NewLines int    `json:"new_lines" yaml:"new_lines"`
	Lines    []Line `json:"lines" yaml:"lines"`
}

// FileDiff is the patch for a single file.
type FileDiff struct {
	Path    string     `json:"path" yaml:"path"`
	OldPath string     `json:"old_path,omitempty" yaml:"old_path,omitempty"`
	Kind    StatusKind `json:"status" yaml:"status"`
	Binary  bool       `json:"binary" yaml:"binary"`
	Hunks   []Hunk     `json:"hunks" yaml:"hunks"`
}

// Clone returns a deep copy.
func (f FileDiff) Clone() FileDiff {
	out := f
	out.Hunks = make([]Hunk, len(f.Hunks))

	for i, h := range f.Hunks {
		out.Hunks[i] = h
		out.Hunks[i].Lines = append([]Line(nil), h.Lines...)
	}

	return out
}

// patchCollector accumulates ForEach callbacks into FileDiffs.
type patchCollector struct {
	files []FileDiff
}

func (c *patchCollector) current() *FileDiff {
	return &c.files[len(c.files)-1]
}

func (c *patchCollector) currentHunk() *Hunk {
	file := c.current()

	return &file.Hunks[len(file.Hunks)-1]
}

func (c *patchCollector) onFile(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
	wrapped := deltaFrom(delta)

	file := FileDiff{
		Path:   wrapped.NewPath,
		Kind:   wrapped.Kind,
		Binary: wrapped.Binary,
		Hunks:  []Hunk{},
	}
	if wrapped.OldPath != wrapped.NewPath {
		file.OldPath = wrapped.OldPath
	}

	c.files = append(c.files, file)

	return c.onHunk, nil
}

func (c *patchCollector) onHunk(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
	file := c.current()
	file.Hunks = append(file.Hunks, Hunk{
		Header:   hunk.Header,
		OldStart: hunk.OldStart,
		OldLines: hunk.OldLines,
		NewStart: hunk.NewStart,
		NewLines: hunk.NewLines,
	})

	return c.onLine, nil
}

func (c *patchCollector) onLine(line git2go.DiffLine) error {
	var origin LineOrigin

	switch line.Origin {
	case git2go.DiffLineContext:
		origin = LineContext
	case git2go.DiffLineAddition:
		origin = LineAddition
	case git2go.DiffLineDeletion:
		origin = LineDeletion
	case git2go.DiffLineContextEOFNL,
		git2go.DiffLineAddEOFNL,
		git2go.DiffLineDelEOFNL,
		git2go.DiffLineFileHdr,
		git2go.DiffLineHunkHdr,
		git2go.DiffLineBinary:
		return nil
	}

	hunk := c.currentHunk()
	hunk.Lines = append(hunk.Lines, Line{
		Origin:    origin,
		Content:   line.Content,
		OldLineno: line.OldLineno,
		NewLineno: line.NewLineno,
	})

	return nil
}

// FileDiffs renders the diff as per-file patches.
func (d *Diff) FileDiffs() ([]FileDiff, error) {
	collector := &patchCollector{}

	err := d.diff.ForEach(collector.onFile, git2go.DiffDetailLines)
	if err != nil {
		return nil, fmt.Errorf("diff foreach: %w", err)
	}

	if collector.files == nil {
		return []FileDiff{}, nil
	}

	return collector.files, nil
}
