package status

import (
	"fmt"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const fingerprintPreview = 8

type RenderOptions struct {
	WaitingOnly bool
}

func renderView(states []domain.BuyerState, opts RenderOptions, s styles) string {
	if opts.WaitingOnly {
		states = waitingOnly(states)
	}

	lines := []string{
		s.title.Render("Relay State"),
		s.header.Render(fmt.Sprintf("buyers: %d  waiting: %d", len(states), countWaiting(states))),
	}

	if len(states) == 0 {
		lines = append(lines, s.empty.Render("No buyer state recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, state := range states {
		lines = append(lines, s.section.Render(renderBuyer(state, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBuyer(state domain.BuyerState, s styles) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		s.buyer.Render(string(state.Buyer)),
		s.detail.Render("state: ")+stateLabel(state, s),
		s.detail.Render(fmt.Sprintf("events: %d", state.EventCount)),
		s.detail.Render("recipient: "+fingerprintLabel(state.Fingerprints[domain.FingerprintKindUser])),
	)
}

func stateLabel(state domain.BuyerState, s styles) string {
	switch {
	case state.Waiting && state.PendingOrder.Quantity > 0:
		return s.waiting.Render(fmt.Sprintf("awaiting recipient (%d stars)", state.PendingOrder.Quantity))
	case state.Waiting:
		return s.waiting.Render("awaiting recipient")
	case state.PendingOrder.PaymentPending:
		return s.pending.Render("payment confirmed, awaiting quantity")
	default:
		return s.idle.Render("idle")
	}
}

func fingerprintLabel(fingerprint string) string {
	if fingerprint == "" {
		return "none"
	}
	if len(fingerprint) > fingerprintPreview {
		return fingerprint[:fingerprintPreview]
	}
	return fingerprint
}

func countWaiting(states []domain.BuyerState) int {
	n := 0
	for _, state := range states {
		if state.Waiting {
			n++
		}
	}
	return n
}

func waitingOnly(states []domain.BuyerState) []domain.BuyerState {
	filtered := make([]domain.BuyerState, 0, len(states))
	for _, state := range states {
		if state.Waiting {
			filtered = append(filtered, state)
		}
	}
	return filtered
}
