package engine

import (
	"github.com/opencarbon/carbonfocus/internal/formula"
)

// quantityResolver is one derivation strategy. Strategies are evaluated in
// the fixed order of the resolvers table; the first one that applies wins,
// which lets formula-rich factors coexist with simple single-field factors
// without branching in the caller.
type quantityResolver struct {
	method  DerivationMethod
	applies func(spec *ActivityIDFieldsSpec, inputs map[string]any) bool
	resolve func(efKey string, spec *ActivityIDFieldsSpec, inputs map[string]any) (float64, QuantityTrace, error)
}

var quantityResolvers = []quantityResolver{
	{
		method: MethodFormula,
		applies: func(spec *ActivityIDFieldsSpec, _ map[string]any) bool {
			return spec.Formula != nil && spec.Formula.Expression != ""
		},
		resolve: resolveFormula,
	},
	{
		method: MethodQuantityField,
		applies: func(spec *ActivityIDFieldsSpec, inputs map[string]any) bool {
			if spec.QuantityField == "" {
				return false
			}
			_, ok := inputs[spec.QuantityField]
			return ok
		},
		resolve: resolveQuantityField,
	},
	{
		method: MethodFirstRequired,
		applies: func(spec *ActivityIDFieldsSpec, _ map[string]any) bool {
			return len(spec.Required) > 0
		},
		resolve: resolveFirstRequired,
	},
	{
		method: MethodFallbackAmount,
		applies: func(_ *ActivityIDFieldsSpec, inputs map[string]any) bool {
			_, ok := inputs["amount"]
			return ok
		},
		resolve: resolveFallbackAmount,
	},
}

// ResolveQuantity derives the physical quantity for one activity from the
// emission factor's spec and the activity's raw inputs.
//
// The required-field check always runs first: a missing required field fails
// with MissingInputError even when a later strategy could technically
// proceed without it. A nil spec is treated as empty, leaving only the
// "amount" fallback.
func ResolveQuantity(efKey string, spec *ActivityIDFieldsSpec, inputs map[string]any) (float64, QuantityTrace, error) {
	if spec == nil {
		spec = &ActivityIDFieldsSpec{}
	}

	for _, field := range spec.Required {
		if _, ok := inputs[field]; !ok {
			return 0, QuantityTrace{}, &MissingInputError{EFKey: efKey, Field: field}
		}
	}

	for _, r := range quantityResolvers {
		if r.applies(spec, inputs) {
			return r.resolve(efKey, spec, inputs)
		}
	}

	return 0, QuantityTrace{}, &NoQuantityDerivationError{EFKey: efKey}
}

func resolveFormula(efKey string, spec *ActivityIDFieldsSpec, inputs map[string]any) (float64, QuantityTrace, error) {
	q, err := formula.Evaluate(spec.Formula.Expression, inputs)
	if err != nil {
		return 0, QuantityTrace{}, err
	}

	output := spec.Formula.Output
	if output == "" {
		output = spec.QuantityField
	}
	if output == "" {
		output = "quantity"
	}

	return q, QuantityTrace{
		Method:     MethodFormula,
		Expression: spec.Formula.Expression,
		Output:     output,
		Unit:       spec.Formula.Unit,
		Quantity:   q,
	}, nil
}

func resolveQuantityField(efKey string, spec *ActivityIDFieldsSpec, inputs map[string]any) (float64, QuantityTrace, error) {
	return numericField(efKey, MethodQuantityField, spec.QuantityField, inputs)
}

func resolveFirstRequired(efKey string, spec *ActivityIDFieldsSpec, inputs map[string]any) (float64, QuantityTrace, error) {
	return numericField(efKey, MethodFirstRequired, spec.Required[0], inputs)
}

func resolveFallbackAmount(efKey string, _ *ActivityIDFieldsSpec, inputs map[string]any) (float64, QuantityTrace, error) {
	return numericField(efKey, MethodFallbackAmount, "amount", inputs)
}

func numericField(efKey string, method DerivationMethod, field string, inputs map[string]any) (float64, QuantityTrace, error) {
	q, err := formula.ToNumber(inputs[field])
	if err != nil {
		return 0, QuantityTrace{}, &InvalidInputError{EFKey: efKey, Field: field, Reason: err.Error()}
	}
	return q, QuantityTrace{Method: method, Field: field, Quantity: q}, nil
}
