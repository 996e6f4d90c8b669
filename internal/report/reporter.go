package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/temirov/gitfo/internal/fleet"
)

const (
	repositoryNameHeaderConstant  = "Repo name"
	currentBranchHeaderConstant   = "Current branch"
	aheadHeaderConstant           = "Ahead"
	behindHeaderConstant          = "Behind"
	dirtyHeaderConstant           = "Dirty"
	noRepositoriesMessageConstant = "No git repos found"
	truncationSuffixConstant      = "..."
	profileHeaderTemplateConstant = "Profile %s\n"
	detailLineTemplateConstant    = "%s: %s\n"
	outcomeLineTemplateConstant   = "%s %s for %s\n"
	outcomeErrorTemplateConstant  = "%s %s for %s: %s\n"
	summaryTemplateConstant       = "%d attempted, %d succeeded, %d failed\n"
	succeededLabelConstant        = "succeeded"
	failedLabelConstant           = "failed"
	writerMissingMessageConstant  = "reporter requires an output writer"
	dirtyColorConstant            = "1"
	succeededColorConstant        = "2"
	attentionColorConstant        = "3"
	divergenceColorConstant       = "6"

	// MaximumCellWidthConstant bounds name and branch cells; longer values end in an ellipsis.
	MaximumCellWidthConstant = 30
)

var errWriterMissing = errors.New(writerMissingMessageConstant)

type palette struct {
	dirty      lipgloss.Style
	divergence lipgloss.Style
	attention  lipgloss.Style
	succeeded  lipgloss.Style
	failed     lipgloss.Style
	plain      lipgloss.Style
	header     lipgloss.Style
}

// Reporter writes fleet tables and outcome lines to an output stream.
type Reporter struct {
	output io.Writer
	styles palette
}

// NewReporter constructs a Reporter. Colours are applied only when colorEnabled is true.
func NewReporter(output io.Writer, colorEnabled bool) (*Reporter, error) {
	if output == nil {
		return nil, errWriterMissing
	}
	return &Reporter{output: output, styles: newPalette(output, colorEnabled)}, nil
}

// IsTerminal reports whether output is an interactive terminal.
func IsTerminal(output io.Writer) bool {
	file, isFile := output.(*os.File)
	if !isFile {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func newPalette(output io.Writer, colorEnabled bool) palette {
	renderer := lipgloss.NewRenderer(output)
	plain := renderer.NewStyle()
	if !colorEnabled {
		return palette{dirty: plain, divergence: plain, attention: plain, succeeded: plain, failed: plain, plain: plain, header: plain}
	}
	return palette{
		dirty:      renderer.NewStyle().Foreground(lipgloss.Color(dirtyColorConstant)),
		divergence: renderer.NewStyle().Foreground(lipgloss.Color(divergenceColorConstant)),
		attention:  renderer.NewStyle().Foreground(lipgloss.Color(attentionColorConstant)),
		succeeded:  renderer.NewStyle().Foreground(lipgloss.Color(succeededColorConstant)),
		failed:     renderer.NewStyle().Foreground(lipgloss.Color(dirtyColorConstant)),
		plain:      plain,
		header:     renderer.NewStyle().Bold(true),
	}
}

// RenderProfileHeader announces the profile whose results follow.
func (reporter *Reporter) RenderProfileHeader(profileName string) error {
	_, writeError := fmt.Fprintf(reporter.output, profileHeaderTemplateConstant, profileName)
	return writeError
}

// RenderTable writes the status table followed by one detail line per unhealthy repository.
func (reporter *Reporter) RenderTable(fleetReport fleet.Report) error {
	if fleetReport.NoRepositories {
		_, writeError := fmt.Fprintln(reporter.output, noRepositoriesMessageConstant)
		return writeError
	}

	rows := make([][]string, 0, len(fleetReport.Rows))
	for _, row := range fleetReport.Rows {
		rows = append(rows, []string{
			Truncate(row.Name, MaximumCellWidthConstant),
			Truncate(row.BranchOrStatus, MaximumCellWidthConstant),
			strconv.FormatUint(uint64(row.Ahead), 10),
			strconv.FormatUint(uint64(row.Behind), 10),
			strconv.FormatBool(row.IsDirty),
		})
	}

	statusTable := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(repositoryNameHeaderConstant, currentBranchHeaderConstant, aheadHeaderConstant, behindHeaderConstant, dirtyHeaderConstant).
		Rows(rows...).
		StyleFunc(func(rowIndex int, columnIndex int) lipgloss.Style {
			if rowIndex == table.HeaderRow {
				return reporter.styles.header.Padding(0, 1)
			}
			if rowIndex < 0 || rowIndex >= len(fleetReport.Rows) {
				return reporter.styles.plain.Padding(0, 1)
			}
			return reporter.cellStyle(fleetReport.Rows[rowIndex], columnIndex).Padding(0, 1)
		})

	if _, writeError := fmt.Fprintln(reporter.output, statusTable.String()); writeError != nil {
		return writeError
	}

	for _, row := range fleetReport.Rows {
		if len(row.Detail) == 0 {
			continue
		}
		if _, writeError := fmt.Fprintf(reporter.output, detailLineTemplateConstant, row.Name, reporter.styles.attention.Render(row.Detail)); writeError != nil {
			return writeError
		}
	}
	return nil
}

func (reporter *Reporter) cellStyle(row fleet.ReportRow, columnIndex int) lipgloss.Style {
	switch columnIndex {
	case 1:
		if row.Status != fleet.RepositoryStatusGood {
			return reporter.styles.attention
		}
	case 2:
		if row.Ahead > 0 {
			return reporter.styles.divergence
		}
	case 3:
		if row.Behind > 0 {
			return reporter.styles.divergence
		}
	case 4:
		if row.IsDirty {
			return reporter.styles.dirty
		}
	}
	return reporter.styles.plain
}

// RenderOutcomes writes one line per attempted repository in profile order.
func (reporter *Reporter) RenderOutcomes(result fleet.ProfileResult) error {
	for _, outcome := range result.Outcomes {
		verb := ActionLabel(outcome.Action)
		repositoryName := ""
		if outcome.Repository != nil {
			repositoryName = outcome.Repository.Name
		}

		var writeError error
		if outcome.Succeeded {
			_, writeError = fmt.Fprintf(reporter.output, outcomeLineTemplateConstant, verb, reporter.styles.succeeded.Render(succeededLabelConstant), repositoryName)
		} else if outcome.Err != nil {
			_, writeError = fmt.Fprintf(reporter.output, outcomeErrorTemplateConstant, verb, reporter.styles.failed.Render(failedLabelConstant), repositoryName, outcome.Err.Error())
		} else {
			_, writeError = fmt.Fprintf(reporter.output, outcomeLineTemplateConstant, verb, reporter.styles.failed.Render(failedLabelConstant), repositoryName)
		}
		if writeError != nil {
			return writeError
		}
	}
	return nil
}

// RenderSummary writes the aggregate counts of an action run.
func (reporter *Reporter) RenderSummary(aggregate fleet.Aggregate) error {
	_, writeError := fmt.Fprintf(reporter.output, summaryTemplateConstant, aggregate.Attempted, aggregate.Succeeded, aggregate.Failed)
	return writeError
}

// ActionLabel capitalises an action name for outcome lines.
func ActionLabel(action fleet.ActionName) string {
	name := string(action)
	if len(name) == 0 {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Truncate shortens value to width runes, replacing the tail with an ellipsis.
func Truncate(value string, width int) string {
	runes := []rune(value)
	if width <= len(truncationSuffixConstant) || len(runes) <= width {
		return value
	}
	return string(runes[:width-len(truncationSuffixConstant)]) + truncationSuffixConstant
}
