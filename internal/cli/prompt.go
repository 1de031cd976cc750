package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/regidor/inventario/internal/engine"
)

// Prompter is the line-oriented dialog used outside the terminal UI.
// With AssumeYes every confirmation is accepted without reading input.
type Prompter struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool

	once   sync.Once
	reader *bufio.Reader
}

var _ engine.Dialog = (*Prompter)(nil)

func (p *Prompter) lines() *bufio.Reader {
	p.once.Do(func() { p.reader = bufio.NewReader(p.In) })
	return p.reader
}

// Confirm prints the question and reads a yes/no answer. Anything other
// than an explicit yes declines, including end of input.
func (p *Prompter) Confirm(ctx context.Context, cfg engine.DialogConfig) bool {
	cfg = cfg.WithDefaults()
	fmt.Fprintf(p.Out, "%s %s\n%s\n", badge(cfg.Severity), cfg.Title, cfg.Message)
	if p.AssumeYes {
		fmt.Fprintf(p.Out, "%s: sí (--yes)\n", cfg.ConfirmLabel)
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.Out, "%s / %s [s/N]: ", cfg.ConfirmLabel, cfg.CancelLabel)
	answer, err := p.ReadLine()
	if err != nil && answer == "" {
		fmt.Fprintln(p.Out)
		return false
	}
	return isYes(answer)
}

// Alert prints the message.
func (p *Prompter) Alert(_ context.Context, cfg engine.DialogConfig) {
	cfg = cfg.WithDefaults()
	fmt.Fprintf(p.Out, "%s %s: %s\n", badge(cfg.Severity), cfg.Title, cfg.Message)
}

// ReadLine reads one trimmed line of input.
func (p *Prompter) ReadLine() (string, error) {
	line, err := p.lines().ReadString('\n')
	return strings.TrimSpace(line), err
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

func badge(s engine.Severity) string {
	switch s {
	case engine.SeveritySuccess:
		return "[ok]"
	case engine.SeverityWarning:
		return "[!]"
	case engine.SeverityDanger:
		return "[x]"
	default:
		return "[i]"
	}
}
