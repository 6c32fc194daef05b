// Package report renders detection and merge results for people and tools.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
	"github.com/klauern/tokensync/internal/sync"
)

// ErrUnsupportedFormat is returned for an unknown report format.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Format represents the output format of a report.
type Format string

const (
	// FormatJSON renders the report as JSON.
	FormatJSON Format = "json"
	// FormatYAML renders the report as YAML.
	FormatYAML Format = "yaml"
	// FormatMarkdown renders the report as Markdown, for pull request bodies.
	FormatMarkdown Format = "markdown"
)

// IsValid returns true if the format is recognized.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// AllFormats returns all supported report formats.
func AllFormats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatMarkdown}
}

// ParseFormat parses a string into a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	if format == "md" {
		format = FormatMarkdown
	}
	if !format.IsValid() {
		return "", fmt.Errorf("%w %q (valid: json, yaml, markdown)", ErrUnsupportedFormat, s)
	}
	return format, nil
}

// Options configures report rendering.
type Options struct {
	// Format specifies the output format.
	Format Format
	// Pretty enables indentation for JSON and YAML.
	Pretty bool
	// IncludeTokens adds the local and remote tokens to each conflict.
	IncludeTokens bool
}

// DefaultOptions returns the default report options.
func DefaultOptions() Options {
	return Options{
		Format:        FormatJSON,
		Pretty:        true,
		IncludeTokens: true,
	}
}

// Reporter renders results in one format.
type Reporter struct {
	opts Options
}

// New creates a new Reporter with the given options.
func New(opts Options) *Reporter {
	return &Reporter{opts: opts}
}

type conflictEntry struct {
	ConflictID          string            `json:"conflictId" yaml:"conflictId"`
	Type                sync.ConflictKind `json:"type" yaml:"type"`
	Severity            sync.Severity     `json:"severity" yaml:"severity"`
	Path                string            `json:"path" yaml:"path"`
	CollectionName      string            `json:"collectionName" yaml:"collectionName"`
	TokenName           string            `json:"tokenName" yaml:"tokenName"`
	Description         string            `json:"description" yaml:"description"`
	AutoResolvable      bool              `json:"autoResolvable" yaml:"autoResolvable"`
	SuggestedResolution sync.Strategy     `json:"suggestedResolution" yaml:"suggestedResolution"`
	LocalToken          *model.Token      `json:"localToken,omitempty" yaml:"localToken,omitempty"`
	RemoteToken         *model.Token      `json:"remoteToken,omitempty" yaml:"remoteToken,omitempty"`
}

type detectReport struct {
	GeneratedAt string          `json:"generatedAt" yaml:"generatedAt"`
	Summary     sync.Summary    `json:"summary" yaml:"summary"`
	Conflicts   []conflictEntry `json:"conflicts" yaml:"conflicts"`
}

type applyReport struct {
	Summary  applySummary   `json:"summary" yaml:"summary"`
	Outcomes []sync.Outcome `json:"outcomes" yaml:"outcomes"`
	Merged   model.Snapshot `json:"merged" yaml:"merged"`
}

type applySummary struct {
	Applied int `json:"applied" yaml:"applied"`
	NoOp    int `json:"noOp" yaml:"noOp"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Tokens  int `json:"tokens" yaml:"tokens"`
}

func (r *Reporter) toEntry(c sync.Conflict) conflictEntry {
	e := conflictEntry{
		ConflictID:          c.ID.String(),
		Type:                c.Kind(),
		Severity:            c.Severity,
		Path:                c.Path().String(),
		CollectionName:      c.Path().Collection,
		TokenName:           c.Path().Name,
		Description:         c.Description,
		AutoResolvable:      c.AutoResolvable,
		SuggestedResolution: c.Suggested,
	}
	if r.opts.IncludeTokens {
		if tok, ok := c.LocalToken(); ok {
			plain := tok.WithoutMetadata()
			e.LocalToken = &plain
		}
		if tok, ok := c.RemoteToken(); ok {
			plain := tok.WithoutMetadata()
			e.RemoteToken = &plain
		}
	}
	return e
}

// WriteDetect renders a detection result.
func (r *Reporter) WriteDetect(res sync.DetectResult, w io.Writer) error {
	defer logging.Timer("report")()

	logging.Debug("rendering detection report",
		slog.String("format", string(r.opts.Format)),
		logging.Count(len(res.Conflicts)),
		logging.Operation("report"),
	)

	rep := detectReport{
		GeneratedAt: res.GeneratedAt.UTC().Format(time.RFC3339),
		Summary:     res.Summary,
		Conflicts:   make([]conflictEntry, len(res.Conflicts)),
	}
	for i, c := range res.Conflicts {
		rep.Conflicts[i] = r.toEntry(c)
	}

	switch r.opts.Format {
	case FormatJSON:
		return r.writeJSON(rep, w)
	case FormatYAML:
		return r.writeYAML(rep, w)
	case FormatMarkdown:
		return writeString(w, detectMarkdown(res))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.opts.Format)
	}
}

// WriteApply renders a merge result, including the merged snapshot for the
// structured formats.
func (r *Reporter) WriteApply(res sync.ApplyResult, w io.Writer) error {
	defer logging.Timer("report")()

	rep := applyReport{
		Summary: applySummary{
			Applied: len(res.Applied()),
			NoOp:    len(res.NoOps()),
			Skipped: len(res.Skipped()),
			Tokens:  res.Merged.TokenCount(),
		},
		Outcomes: res.Outcomes,
		Merged:   res.Merged,
	}
	if rep.Outcomes == nil {
		rep.Outcomes = []sync.Outcome{}
	}

	switch r.opts.Format {
	case FormatJSON:
		return r.writeJSON(rep, w)
	case FormatYAML:
		return r.writeYAML(rep, w)
	case FormatMarkdown:
		return writeString(w, applyMarkdown(res))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.opts.Format)
	}
}

func (r *Reporter) writeJSON(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if r.opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

func (r *Reporter) writeYAML(v any, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	if r.opts.Pretty {
		encoder.SetIndent(2)
	}
	if err := encoder.Encode(v); err != nil {
		_ = encoder.Close()
		return err
	}
	return encoder.Close()
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

// KindTitle renders a conflict kind as a title, e.g. "Value Change".
func KindTitle(kind sync.ConflictKind) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(kind), "-", " "))
}

func detectMarkdown(res sync.DetectResult) string {
	var sb strings.Builder
	s := res.Summary

	sb.WriteString("# Token Conflicts\n\n")
	sb.WriteString("| Total | Auto-resolvable | Needs review | High severity | Local tokens | Remote tokens |\n")
	sb.WriteString("|-------|-----------------|--------------|---------------|--------------|---------------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %d |\n",
		s.Total, s.AutoResolvable, s.RequiresManualReview, s.HighSeverity, s.LocalTokens, s.RemoteTokens))

	if len(res.Conflicts) == 0 {
		sb.WriteString("\n*No conflicts.*\n")
		return sb.String()
	}

	for _, kind := range sync.AllKinds() {
		conflicts := res.ByKind(kind)
		if len(conflicts) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n## %s (%d)\n\n", KindTitle(kind), len(conflicts)))
		sb.WriteString("| Path | Severity | Auto | Suggested | Description |\n")
		sb.WriteString("|------|----------|------|-----------|-------------|\n")
		for _, c := range conflicts {
			auto := "no"
			if c.AutoResolvable {
				auto = "yes"
			}
			sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s | %s |\n",
				c.Path(), c.Severity, auto, c.Suggested, escapeCell(c.Description)))
		}
	}
	return sb.String()
}

func applyMarkdown(res sync.ApplyResult) string {
	var sb strings.Builder

	sb.WriteString("# Merge Outcome\n\n")
	sb.WriteString(fmt.Sprintf("Applied %d, unchanged %d, skipped %d. Merged snapshot has %d token(s).\n",
		len(res.Applied()), len(res.NoOps()), len(res.Skipped()), res.Merged.TokenCount()))

	if len(res.Outcomes) == 0 {
		return sb.String()
	}

	sb.WriteString("\n| Path | Strategy | Result | Note |\n")
	sb.WriteString("|------|----------|--------|------|\n")
	for _, o := range res.Outcomes {
		label := o.ConflictID
		if !o.Path.IsZero() {
			label = o.Path.String()
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n",
			label, o.Strategy, o.Action, escapeCell(o.Message)))
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
