package sos

import (
	"fmt"
	"io"

	"stadtwache/internal/models"
)

// Presenter surfaces a terminal outcome to the operator. Invoked exactly
// once per triggered flow.
type Presenter interface {
	Present(outcome *Outcome)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(outcome *Outcome)

func (f PresenterFunc) Present(outcome *Outcome) { f(outcome) }

// TerminalPresenter renders outcomes for the CLI front-end. The wording
// follows the original operator dialogs: a primary success includes the
// resolved position and accuracy, a fallback success is explicitly marked
// as degraded, and a critical failure directs the operator to an
// out-of-band emergency channel.
type TerminalPresenter struct {
	Out io.Writer
}

func (p TerminalPresenter) Present(outcome *Outcome) {
	switch {
	case outcome.State == StateSuccess && outcome.Kind == models.AlertPrimary:
		fmt.Fprintln(p.Out, "🚨 SOS-ALARM GESENDET!")
		fmt.Fprintln(p.Out, "Alle Team-Mitglieder wurden alarmiert!")
		fmt.Fprintf(p.Out, "📍 Standort: %s\n", outcome.LocationStatus)
		if outcome.Location != nil {
			fmt.Fprintf(p.Out, "⚡ Genauigkeit: ±%.0fm\n", outcome.Location.Accuracy)
		}
	case outcome.State == StateSuccess:
		fmt.Fprintln(p.Out, "🚨 NOTFALL-ALARM GESENDET!")
		fmt.Fprintln(p.Out, "Team wurde alarmiert (Fallback-Modus)")
		fmt.Fprintln(p.Out, "📍 GPS: Nicht verfügbar")
	default:
		fmt.Fprintln(p.Out, "❌ KRITISCHER FEHLER")
		fmt.Fprintln(p.Out, "SOS-Alarm konnte nicht gesendet werden.")
		fmt.Fprintln(p.Out, "Bitte direkt Kollegen kontaktieren oder den Notruf 112 wählen!")
		if outcome.Queued {
			fmt.Fprintln(p.Out, "Der Alarm wurde lokal gespeichert und wird erneut gesendet, sobald Verbindung besteht.")
		}
	}
}
