// Package flow orchestrates the advisory conversation: a supervisor routes
// each farmer message to an intent, and responder bots with bound tools
// produce the price summary, negotiation strategy, and localized reply.
package flow

import (
	"fmt"
	"strings"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// maxToolRounds caps the tool-call loop per responder step.
const maxToolRounds = 5

// formatChatHistory renders prior turns as a Farmer/Assistant transcript for
// prompt context.
func formatChatHistory(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "Farmer: %s\n", turn.User)
		fmt.Fprintf(&b, "Assistant: %s\n", turn.Assistant)
	}
	return strings.TrimRight(b.String(), "\n")
}

// historyBlock wraps a formatted transcript in a delimited context block, or
// returns empty when there is no history.
func historyBlock(history []models.ConversationTurn) string {
	text := formatChatHistory(history)
	if text == "" {
		return ""
	}
	return fmt.Sprintf("PREVIOUS CONVERSATION HISTORY (use this for context):\n---\n%s\n---\n", text)
}

// valueOr renders an extracted field for a task description.
func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// priceOr renders an optional price for a task description.
func priceOr(p *float64, fallback string) string {
	if p == nil {
		return fallback
	}
	return fmt.Sprintf("%.2f", *p)
}
