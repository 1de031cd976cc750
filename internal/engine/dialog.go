package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// Severity sets the tone a dialog is rendered with.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityDanger
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityDanger:
		return "danger"
	default:
		return "info"
	}
}

// Mode selects between a single-button notice and a yes/no question.
type Mode int

const (
	ModeAlert Mode = iota
	ModeConfirm
)

const (
	defaultConfirmLabel = "Aceptar"
	defaultCancelLabel  = "Cancelar"
)

// DialogConfig is everything a dialog implementation needs to render a
// prompt. Empty labels are filled by WithDefaults.
type DialogConfig struct {
	Title        string
	Message      string
	Icon         string
	Severity     Severity
	Mode         Mode
	ConfirmLabel string
	CancelLabel  string
}

// WithDefaults fills empty button labels. Alerts have no cancel button.
func (c DialogConfig) WithDefaults() DialogConfig {
	if c.ConfirmLabel == "" {
		c.ConfirmLabel = defaultConfirmLabel
	}
	if c.Mode == ModeConfirm && c.CancelLabel == "" {
		c.CancelLabel = defaultCancelLabel
	}
	if c.Mode == ModeAlert {
		c.CancelLabel = ""
	}
	return c
}

// Dialog blocks the calling operation until the user answers. Confirm
// returns false when the user declines or ctx ends first.
type Dialog interface {
	Confirm(ctx context.Context, cfg DialogConfig) bool
	Alert(ctx context.Context, cfg DialogConfig)
}

func alertConfig(sev Severity, title, message string) DialogConfig {
	icon := "info"
	switch sev {
	case SeveritySuccess:
		icon = "check"
	case SeverityWarning:
		icon = "warning"
	case SeverityDanger:
		icon = "error"
	}
	return DialogConfig{Title: title, Message: message, Icon: icon, Severity: sev, Mode: ModeAlert}.WithDefaults()
}

func confirmConfig(sev Severity, title, message, confirmLabel string) DialogConfig {
	return DialogConfig{
		Title:        title,
		Message:      message,
		Icon:         "question",
		Severity:     sev,
		Mode:         ModeConfirm,
		ConfirmLabel: confirmLabel,
	}.WithDefaults()
}

// logDialog is used when no Dialog is configured. Alerts go to the log and
// every confirmation is declined, so nothing destructive runs unattended.
type logDialog struct {
	log zerolog.Logger
}

func (d logDialog) Confirm(_ context.Context, cfg DialogConfig) bool {
	d.log.Warn().Str("title", cfg.Title).Msg("confirmation declined: no dialog attached")
	return false
}

func (d logDialog) Alert(_ context.Context, cfg DialogConfig) {
	d.log.Info().Str("severity", cfg.Severity.String()).Str("title", cfg.Title).Msg(cfg.Message)
}
