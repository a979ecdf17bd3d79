package application

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-reco/infrastructure/transform"
)

// errUnknownType is returned by the parameter validators for types they
// have no rules for. The loader then defers to the unit registry.
var errUnknownType = fmt.Errorf("unknown type")

// identifierPattern matches lower snake case identifiers such as
// "friends_in_common".
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateUnitParameters validates the parameters for a specific unit type,
// ensuring values meet the constraints of that unit.
// ValidateUnitParameters supports friends_in_common, random_people,
// same_label, age_difference and same_location; custom units are not
// checked.
// ValidateUnitParameters returns an error if parameter decoding fails
// or if any validation rule is violated.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	paramMap, err := decodeParams(params)
	if err != nil {
		return err
	}

	switch unitType {
	case "friends_in_common", "age_difference":
		if err := validatePartialParam(paramMap); err != nil {
			return err
		}
		return validateTransformerParam(paramMap)
	case "random_people":
		if err := validateIntParam(paramMap, "seed", 0, 1<<62); err != nil {
			return err
		}
		return validateIntParam(paramMap, "max_added", 0, 1_000_000)
	case "same_label":
		if attr, ok := paramMap["attribute"]; ok {
			s, ok := attr.(string)
			if !ok {
				return fmt.Errorf("attribute must be a string")
			}
			if !slices.Contains([]string{"gender", "city", "name"}, s) {
				return fmt.Errorf("invalid attribute: %s", s)
			}
		}
		if err := validatePartialParam(paramMap); err != nil {
			return err
		}
		return validateIntParam(paramMap, "value", -1000, 1000)
	case "same_location":
		if err := validatePartialParam(paramMap); err != nil {
			return err
		}
		if err := validateIntParam(paramMap, "value", -1000, 1000); err != nil {
			return err
		}
		return validateIntParam(paramMap, "max_distance", 0, 5)
	case "custom":
		// Custom units have flexible validation
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownType, unitType)
	}
}

// ValidateBlacklistParameters validates the parameters of a blacklist type.
// The built-in blacklists take no parameters.
func ValidateBlacklistParameters(blacklistType string, params yaml.Node) error {
	paramMap, err := decodeParams(params)
	if err != nil {
		return err
	}

	switch blacklistType {
	case "exclude_self", "existing_friends":
		if len(paramMap) > 0 {
			return fmt.Errorf("%s takes no parameters", blacklistType)
		}
		return nil
	case "custom":
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownType, blacklistType)
	}
}

func decodeParams(params yaml.Node) (map[string]any, error) {
	paramMap := make(map[string]any)
	if params.Kind == 0 {
		return paramMap, nil
	}
	if err := params.Decode(&paramMap); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return paramMap, nil
}

func validatePartialParam(params map[string]any) error {
	partial, ok := params["partial"]
	if !ok {
		return nil
	}
	s, ok := partial.(string)
	if !ok {
		return fmt.Errorf("partial must be a string")
	}
	if s == "" {
		return fmt.Errorf("partial cannot be empty")
	}
	return nil
}

func validateIntParam(params map[string]any, key string, lo, hi int) error {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	v, ok := raw.(int)
	if !ok {
		return fmt.Errorf("%s must be an integer", key)
	}
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return nil
}

// validateTransformerParam checks an optional transformer mapping. Only
// the keys present are checked; the unit supplies defaults for the rest.
func validateTransformerParam(params map[string]any) error {
	raw, ok := params["transformer"]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("transformer must be a mapping")
	}
	for key := range m {
		if !slices.Contains([]string{"kind", "max", "anchor", "scale", "negate"}, key) {
			return fmt.Errorf("unknown transformer parameter: %s", key)
		}
	}
	base := transform.Spec{Kind: "pareto", Max: 1, Anchor: 1, Scale: 1}
	spec, err := base.Override(m)
	if err != nil {
		return err
	}
	if _, err := transform.New(spec); err != nil {
		return fmt.Errorf("invalid transformer: %w", err)
	}
	return nil
}

// RegisterEngineValidators registers custom validation functions with
// the validator instance for use in engine configuration validation.
// RegisterEngineValidators returns an error if any validator registration
// fails.
func RegisterEngineValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("identifier", validateIdentifier); err != nil {
		return fmt.Errorf("failed to register identifier validator: %w", err)
	}
	return nil
}

// validateIdentifier validates that ids and types are lower snake case,
// so they can be referenced from stages and used as metric labels.
func validateIdentifier(fl validator.FieldLevel) bool {
	return identifierPattern.MatchString(fl.Field().String())
}
