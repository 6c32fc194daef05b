package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauern/tokensync/internal/model"
	"github.com/klauern/tokensync/internal/report"
	"github.com/klauern/tokensync/internal/sync"
	"github.com/klauern/tokensync/internal/ui"
)

// errPromptAborted is returned when the user quits the prompt.
var errPromptAborted = errors.New("conflict resolution aborted")

// ConflictPrompter asks for a decision on each conflict, one line at a
// time. It is used when no terminal is attached for the full-screen picker.
type ConflictPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewConflictPrompter creates a prompter reading answers from in.
func NewConflictPrompter(in io.Reader, out io.Writer) *ConflictPrompter {
	return &ConflictPrompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Prompt asks about every conflict in order. Conflicts left undecided are
// omitted from the result, which keeps the local token.
func (p *ConflictPrompter) Prompt(conflicts []sync.Conflict) ([]sync.Resolution, error) {
	p.printf("\n=== Conflict Resolution ===\n")
	p.printf("Found %d conflict(s).\n\n", len(conflicts))

	var resolutions []sync.Resolution
	for i, c := range conflicts {
		p.printf("--- Conflict %d of %d: %s ---\n", i+1, len(conflicts), c.Path())
		p.printf("%s, %s severity: %s\n", report.KindTitle(c.Kind()), c.Severity, c.Description)

		strategy, err := p.promptStrategy(c)
		if err != nil {
			return nil, err
		}
		if strategy == "" {
			p.printf("%s\n\n", ui.StatusSkipped("left undecided, keeping local"))
			continue
		}

		path := c.Path()
		resolutions = append(resolutions, sync.Resolution{
			ConflictID: c.ID.String(),
			Strategy:   strategy,
			Path:       &path,
		})
		p.printf("%s\n\n", ui.StatusSuccess(fmt.Sprintf("%s: %s", c.Path(), strategy)))
	}
	return resolutions, nil
}

// promptStrategy returns the chosen strategy, or "" to leave the conflict
// undecided.
func (p *ConflictPrompter) promptStrategy(c sync.Conflict) (sync.Strategy, error) {
	if !c.Decidable() {
		return p.promptUndecidable(c)
	}

	p.printf("\nHow would you like to resolve this conflict?\n")
	p.printf("  1. Take local (keep the design tool's token)\n")
	p.printf("  2. Take remote (use the repository's token)\n")
	if c.AutoResolvable && c.Suggested != sync.StrategyManual {
		p.printf("  3. Accept suggestion (%s)\n", c.Suggested)
	} else {
		p.printf("  3. Accept suggestion (none, needs review)\n")
	}
	p.printf("  4. Leave undecided\n")
	p.printf("  5. Show tokens\n")
	p.printf("  q. Abort\n")
	p.printf("\nEnter choice [1-5, q]: ")

	for {
		response, err := p.reader.ReadString('\n')
		if err != nil && (response == "" || !errors.Is(err, io.EOF)) {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(response)) {
		case "1", "l", "local":
			return sync.StrategyTakeLocal, nil
		case "2", "r", "remote":
			return sync.StrategyTakeRemote, nil
		case "3", "s":
			if c.AutoResolvable && c.Suggested != sync.StrategyManual {
				return c.Suggested, nil
			}
			p.printf("No suggestion for this conflict. Enter choice [1-5, q]: ")
		case "4", "":
			return "", nil
		case "5":
			p.showTokens(c)
			p.printf("\nEnter choice [1-5, q]: ")
		case "q", "quit":
			return "", errPromptAborted
		default:
			p.printf("Invalid choice. Enter 1-5 or q: ")
		}

		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", io.ErrUnexpectedEOF)
		}
	}
}

// promptUndecidable handles conflicts no side can settle, such as colliding
// names. The only choices are to move on or abort.
func (p *ConflictPrompter) promptUndecidable(c sync.Conflict) (sync.Strategy, error) {
	if d, ok := c.Detail.(sync.NameConflict); ok {
		p.printf("Colliding paths:\n")
		for _, path := range d.Paths {
			p.printf("  %s / %s\n", path.Collection, path.Name)
		}
	}
	p.printf("\nRename one of the tokens at the source to settle this conflict.\n")
	p.printf("  4. Leave undecided\n")
	p.printf("  q. Abort\n")
	p.printf("\nEnter choice [4, q]: ")

	for {
		response, err := p.reader.ReadString('\n')
		if err != nil && (response == "" || !errors.Is(err, io.EOF)) {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(response)) {
		case "4", "":
			return "", nil
		case "q", "quit":
			return "", errPromptAborted
		default:
			p.printf("This conflict cannot take a side. Enter 4 or q: ")
		}

		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", io.ErrUnexpectedEOF)
		}
	}
}

func (p *ConflictPrompter) showTokens(c sync.Conflict) {
	if tok, ok := c.LocalToken(); ok {
		p.printf("\n=== LOCAL ===\n%s\n", formatToken(tok))
	}
	if tok, ok := c.RemoteToken(); ok {
		p.printf("\n=== REMOTE ===\n%s\n", formatToken(tok))
	}
}

func formatToken(tok model.Token) string {
	data, err := json.MarshalIndent(tok.WithoutMetadata(), "", "  ")
	if err != nil {
		return fmt.Sprintf("<unprintable token: %v>", err)
	}
	return string(data)
}

func (p *ConflictPrompter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}
