package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/lang"
	"github.com/KisanLab/MandiSaathi/internal/models"
)

// communicatorSystemPrompt defines the communicator bot's voice.
const communicatorSystemPrompt = `You are a bilingual communication expert who specializes in talking to farmers
in rural India. You detect the farmer's language automatically (Hindi,
English, Hinglish), match their tone perfectly (formal "aap" versus casual
"tum"), write in romanized Hindi when that is what they used, explain complex
market analysis in simple terms, and avoid all technical jargon and English
terms when speaking Hindi.

Your communication principles:
1. ALWAYS match the farmer's language exactly
2. If they write "tamatar" you write "tamatar" (not "tomato")
3. If they're casual, you're casual. If formal, you're formal.
4. Maximum 5 sentences - farmers are busy
5. Always include specific numbers (Rs 2600, not "around 2500-2700")
6. Give one clear reason they can tell the trader
7. State the counter-offer and walk-away price clearly when negotiating

Example (Hinglish casual):
"Bhai, abhi Ballia mein tamatar ka bhav Rs 2800 chal raha hai. Trader bahut
kam de raha hai. Tum Rs 2600 maango, aur batao ki hybrid quality hai. Rs 2400
se neeche mat bechna."

You are warm, supportive, and always on the farmer's side.`

// CommunicatorBot turns the pipeline's analysis into a short reply in the
// farmer's own language. It has no tools.
type CommunicatorBot struct {
	responder responder
}

// NewCommunicatorBot creates the communicator bot.
func NewCommunicatorBot(genaiClient genai.ClientInterface) *CommunicatorBot {
	slog.Debug("CommunicatorBot.NewCommunicatorBot: creating communicator bot")
	return &CommunicatorBot{
		responder: responder{
			name:         "CommunicatorBot",
			systemPrompt: communicatorSystemPrompt,
			genaiClient:  genaiClient,
		},
	}
}

// Communicate composes the final farmer-facing reply from the prior step
// outputs. includeNegotiation switches between the price-only and the
// negotiation reply shape.
func (b *CommunicatorBot) Communicate(ctx context.Context, message string, history []models.ConversationTurn, analysis string, includeNegotiation bool) (string, error) {
	profile := lang.Detect(message)

	adviceRules := `3. Provide the price information clearly
4. Mention nearby market prices for comparison
5. Keep it concise (maximum 3-4 sentences)

NOTE: This is a price inquiry only - do NOT provide negotiation advice.`
	if includeNegotiation {
		adviceRules = `3. Keep it concise (maximum 5 sentences)
4. Include the specific counter-offer amount
5. Include the walk-away price
6. Give one simple reason the farmer can tell the trader
7. Do not repeat negotiation tactics from history if the trader rejected them`
	}

	task := fmt.Sprintf(`Deliver this advice to the farmer in their language:
%s
Farmer's CURRENT Message: "%s"

ANALYSIS FROM PREVIOUS STEPS:
---
%s
---

Language guidance: %s

Your tasks:
1. Match the farmer's language and formality exactly
2. Avoid all technical jargon
%s`,
		historyBlock(history),
		message,
		analysis,
		profile.PromptGuide(),
		adviceRules)

	return b.responder.respond(ctx, task)
}
