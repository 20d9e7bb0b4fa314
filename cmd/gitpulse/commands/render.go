package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/src-d/enry/v2"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

const yamlIndent = 2

// ErrUnknownOutput is returned for an unsupported --output value.
var ErrUnknownOutput = errors.New("unknown output format")

var kindColors = map[gitlib.StatusKind]*color.Color{
	gitlib.StatusNew:        color.New(color.FgGreen),
	gitlib.StatusDeleted:    color.New(color.FgRed),
	gitlib.StatusModified:   color.New(color.FgYellow),
	gitlib.StatusRenamed:    color.New(color.FgCyan),
	gitlib.StatusTypechange: color.New(color.FgBlue),
	gitlib.StatusConflicted: color.New(color.FgMagenta, color.Bold),
}

var (
	headingColor  = color.New(color.Bold)
	hunkColor     = color.New(color.FgCyan)
	addedColor    = color.New(color.FgGreen)
	removedColor  = color.New(color.FgRed)
	commitIDColor = color.New(color.FgYellow)
	failureColor  = color.New(color.FgRed)
)

type renderer struct {
	out    io.Writer
	format string
}

func newRenderer(out io.Writer, format string) (*renderer, error) {
	switch format {
	case outputText, outputJSON, outputYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, format)
	}

	return &renderer{out: out, format: format}, nil
}

// emit writes value in the structured formats and defers to text otherwise.
func (r *renderer) emit(value any, text func(io.Writer) error) error {
	switch r.format {
	case outputJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")

		err := enc.Encode(value)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case outputYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(value)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		return text(r.out)
	}
}

// message prints a one-line result, or {"result": msg} in structured formats.
func (r *renderer) message(msg string) error {
	return r.emit(map[string]string{"result": msg}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, msg)

		return err
	})
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	return tbl
}

func kindMarker(kind gitlib.StatusKind) string {
	c, ok := kindColors[kind]
	if !ok {
		return kind.Short()
	}

	return c.Sprint(kind.Short())
}

// language guesses a file's language from its name alone.
func language(path string) string {
	if lang, ok := enry.GetLanguageByFilename(path); ok {
		return lang
	}

	lang, _ := enry.GetLanguageByExtension(path)

	return lang
}

func writeStatusItems(w io.Writer, items []gitlib.StatusItem, empty string) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, empty)

		return err
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"", "PATH", "STATUS", "LANGUAGE"})

	for _, item := range items {
		tbl.AppendRow(table.Row{kindMarker(item.Kind), item.Path, item.Kind.String(), language(item.Path)})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%s files", humanize.Comma(int64(len(items))))})
	tbl.Render()

	return nil
}

func writeCommits(w io.Writer, commits []gitlib.CommitInfo) error {
	if len(commits) == 0 {
		_, err := fmt.Fprintln(w, "no commits")

		return err
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"COMMIT", "WHEN", "AUTHOR", "SUMMARY"})

	for _, commit := range commits {
		tbl.AppendRow(table.Row{
			commitIDColor.Sprint(commit.ID.Short()),
			humanize.Time(commit.Time),
			commit.Author,
			commit.Summary,
		})
	}

	tbl.Render()

	return nil
}

func writeStashes(w io.Writer, entries []gitlib.StashEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no stashes")

		return err
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"STASH", "COMMIT", "WHEN", "MESSAGE"})

	for _, entry := range entries {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("stash@{%d}", entry.Index),
			commitIDColor.Sprint(entry.ID.Short()),
			humanize.Time(entry.Time),
			entry.Message,
		})
	}

	tbl.Render()

	return nil
}

func writeWorktrees(w io.Writer, worktrees []gitlib.Worktree) error {
	if len(worktrees) == 0 {
		_, err := fmt.Fprintln(w, "no linked worktrees")

		return err
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"NAME", "BRANCH", "HEAD", "STATE", "PATH"})

	for _, wt := range worktrees {
		branch := wt.Branch
		if branch == "" {
			branch = "(detached)"
		}

		head := ""
		if !wt.Head.IsZero() {
			head = commitIDColor.Sprint(wt.Head.Short())
		}

		state := "clean"

		switch {
		case !wt.Valid:
			branch, state = "", failureColor.Sprint("missing")
		case !wt.Clean:
			state = "dirty"
		}

		tbl.AppendRow(table.Row{wt.Name, branch, head, state, wt.Path})
	}

	tbl.Render()

	return nil
}

func writeFileDiffs(w io.Writer, diffs []gitlib.FileDiff) error {
	if len(diffs) == 0 {
		_, err := fmt.Fprintln(w, "no changes")

		return err
	}

	for _, file := range diffs {
		name := file.Path
		if file.OldPath != "" && file.OldPath != file.Path {
			name = file.OldPath + " => " + file.Path
		}

		headingColor.Fprintf(w, "%s %s (%s)\n", kindMarker(file.Kind), name, file.Kind)

		if file.Binary {
			fmt.Fprintln(w, "Binary files differ")

			continue
		}

		for _, hunk := range file.Hunks {
			hunkColor.Fprintln(w, strings.TrimRight(hunk.Header, "\r\n"))

			for _, line := range hunk.Lines {
				writeDiffLine(w, line)
			}
		}
	}

	return nil
}

func writeDiffLine(w io.Writer, line gitlib.Line) {
	text := string(rune(line.Origin)) + strings.TrimRight(line.Content, "\r\n")

	switch line.Origin {
	case gitlib.LineAddition:
		addedColor.Fprintln(w, text)
	case gitlib.LineDeletion:
		removedColor.Fprintln(w, text)
	default:
		fmt.Fprintln(w, text)
	}
}
