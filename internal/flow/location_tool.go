package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KisanLab/MandiSaathi/internal/normalize"
	"github.com/KisanLab/MandiSaathi/internal/store"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// DistrictResolver lists the districts the live price source reports for a
// state. *prices.Service satisfies it.
type DistrictResolver interface {
	GetDistrictsForState(ctx context.Context, state string) ([]string, error)
}

// LocationTool validates state and district names and lists known districts.
// The static tables are merged with districts reported by the live source.
type LocationTool struct {
	store     store.Store
	districts DistrictResolver
}

// NewLocationTool creates a location tool. Both dependencies are optional;
// without them only the static tables are consulted.
func NewLocationTool(st store.Store, districts DistrictResolver) *LocationTool {
	slog.Debug("LocationTool.NewLocationTool: creating location tool",
		"hasStore", st != nil, "hasDistrictResolver", districts != nil)
	return &LocationTool{store: st, districts: districts}
}

// GetValidateToolDefinition returns the OpenAI tool definition for location
// validation.
func (lt *LocationTool) GetValidateToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "validate_location",
			Description: openai.String("Validate and correct an Indian state and district pair. Handles abbreviations (UP, MP) and spelling mistakes like 'Balia' for 'Ballia'."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"state": map[string]interface{}{
						"type":        "string",
						"description": "State name or abbreviation as the farmer wrote it",
					},
					"district": map[string]interface{}{
						"type":        "string",
						"description": "District name as the farmer wrote it",
					},
				},
				"required": []string{"state", "district"},
			},
		},
	}
}

// GetDistrictsToolDefinition returns the OpenAI tool definition for listing
// districts of a state.
func (lt *LocationTool) GetDistrictsToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "get_districts_for_state",
			Description: openai.String("List the known mandi districts for an Indian state."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"state": map[string]interface{}{
						"type":        "string",
						"description": "State name or abbreviation",
					},
				},
				"required": []string{"state"},
			},
		},
	}
}

// ExecuteValidateLocation resolves the canonical state and district names.
// Resolution failures are reported as readable text so the bot can ask the
// farmer for a correction.
func (lt *LocationTool) ExecuteValidateLocation(ctx context.Context, args map[string]interface{}) (string, error) {
	state, _ := args["state"].(string)
	district, _ := args["district"].(string)

	canonicalState, canonicalDistrict, err := normalize.Location(state, district)
	if err != nil {
		slog.Debug("LocationTool.ExecuteValidateLocation: location not resolved",
			"state", state, "district", district, "error", err)
		return fmt.Sprintf("Invalid location: %s", err), nil
	}
	return fmt.Sprintf("Validated location: %s, %s", canonicalState, canonicalDistrict), nil
}

// ExecuteGetDistricts lists districts for a state. The live source is asked
// first so its listing lands in the district cache; on failure the static
// table and any previously cached districts still answer.
func (lt *LocationTool) ExecuteGetDistricts(ctx context.Context, args map[string]interface{}) (string, error) {
	stateArg, _ := args["state"].(string)
	state, ok := normalize.CanonicalState(stateArg)
	if !ok {
		return fmt.Sprintf("Unknown state: %q", stateArg), nil
	}

	districts, _ := normalize.DistrictsForState(state)
	seen := make(map[string]bool, len(districts))
	for _, d := range districts {
		seen[d] = true
	}
	merge := func(extra []string) {
		for _, d := range extra {
			if d != "" && !seen[d] {
				seen[d] = true
				districts = append(districts, d)
			}
		}
	}

	if lt.districts != nil {
		live, err := lt.districts.GetDistrictsForState(ctx, state)
		if err != nil {
			slog.Warn("LocationTool.ExecuteGetDistricts: live district lookup failed", "error", err, "state", state)
		}
		merge(live)
	}
	if lt.store != nil {
		cached, err := lt.store.GetDistricts(state)
		if err != nil {
			slog.Warn("LocationTool.ExecuteGetDistricts: failed to load cached districts", "error", err, "state", state)
		}
		merge(cached)
	}

	if len(districts) == 0 {
		return fmt.Sprintf("No districts known for %s", state), nil
	}
	return fmt.Sprintf("Districts of %s: %s", state, strings.Join(districts, ", ")), nil
}
