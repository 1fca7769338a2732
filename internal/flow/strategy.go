package flow

import (
	"fmt"
	"strings"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// Negotiation constants. Counter-offers target 93% of the modal price and the
// walk-away floor is 80%.
const (
	counterOfferFactor = 0.93
	walkAwayFactor     = 0.80

	goodDealMaxPercent = 5.0
	fairDealMaxPercent = 15.0
)

// ComputeStrategy derives the numeric negotiation advice from the modal
// market price and the trader's offer. The numbers are computed here so the
// strategist bot never depends on model arithmetic.
func ComputeStrategy(modalPrice, offeredPrice float64) models.NegotiationStrategy {
	percentDiff := (modalPrice - offeredPrice) / modalPrice * 100
	counterOffer := modalPrice * counterOfferFactor
	walkAway := modalPrice * walkAwayFactor

	var assessment models.DealAssessment
	switch {
	case percentDiff <= goodDealMaxPercent && percentDiff >= -goodDealMaxPercent:
		assessment = models.DealGood
	case percentDiff > goodDealMaxPercent && percentDiff <= fairDealMaxPercent:
		assessment = models.DealFair
	case percentDiff > fairDealMaxPercent:
		assessment = models.DealBad
	default:
		// Offer is more than 5% above market.
		assessment = models.DealGood
	}

	strategy := models.NegotiationStrategy{
		DealAssessment:    assessment,
		PercentDifference: percentDiff,
		CounterOffer:      counterOffer,
		WalkAwayPrice:     walkAway,
		MaxConcession:     counterOffer - walkAway,
	}
	strategy.TalkingPoints = talkingPoints(assessment, modalPrice, offeredPrice, counterOffer)
	strategy.Justification = justification(assessment, percentDiff, modalPrice)
	return strategy
}

func talkingPoints(assessment models.DealAssessment, modal, offered, counter float64) []string {
	points := []string{
		fmt.Sprintf("The official mandi modal price today is Rs %.0f per quintal.", modal),
	}
	switch assessment {
	case models.DealGood:
		points = append(points,
			"The offer is close to the market rate, so accepting is reasonable.")
	case models.DealFair:
		points = append(points,
			fmt.Sprintf("The offer of Rs %.0f is below the market rate; ask for Rs %.0f citing the official price.", offered, counter),
			"Mention the quality and grade of the produce to support the higher price.")
	case models.DealBad:
		points = append(points,
			fmt.Sprintf("Rs %.0f is far below the market rate; counter at Rs %.0f.", offered, counter),
			"Other traders or nearby mandis will pay closer to the market rate, so walking away is an option.")
	}
	return points
}

func justification(assessment models.DealAssessment, percentDiff, modal float64) string {
	switch assessment {
	case models.DealGood:
		return fmt.Sprintf("The offer is within %.0f%% of the modal price of Rs %.0f.", goodDealMaxPercent, modal)
	case models.DealFair:
		return fmt.Sprintf("The offer is %.1f%% below the modal price of Rs %.0f, which leaves room to negotiate.", percentDiff, modal)
	default:
		return fmt.Sprintf("The offer is %.1f%% below the modal price of Rs %.0f, well outside a fair range.", percentDiff, modal)
	}
}

// FormatStrategy renders a strategy as the pre-computed scaffold block given
// to the strategist bot.
func FormatStrategy(s models.NegotiationStrategy) string {
	var b strings.Builder
	b.WriteString("PRE-COMPUTED NEGOTIATION NUMBERS (use these exact figures):\n")
	fmt.Fprintf(&b, "- Deal Assessment: %s\n", s.DealAssessment)
	fmt.Fprintf(&b, "- Percentage Difference: %.1f%% below market\n", s.PercentDifference)
	fmt.Fprintf(&b, "- Counter-Offer: Rs %.0f per quintal\n", s.CounterOffer)
	fmt.Fprintf(&b, "- Walk-Away Price: Rs %.0f per quintal\n", s.WalkAwayPrice)
	fmt.Fprintf(&b, "- Maximum Concession: Rs %.0f\n", s.MaxConcession)
	for _, p := range s.TalkingPoints {
		fmt.Fprintf(&b, "- Talking Point: %s\n", p)
	}
	fmt.Fprintf(&b, "- Justification: %s\n", s.Justification)
	return b.String()
}
