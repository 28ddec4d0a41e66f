package engine

import "context"

// ComputeActivity turns one activity plus its matched emission factor into a
// kgCO2e value and a structured trace.
//
// When the factor carries a direct value the conversion is a pure
// multiplication. Otherwise the gas breakdown is collapsed through the GWP
// table; a factor with neither value nor table-matching gases contributes
// zero rather than failing (current policy, see DESIGN.md).
func ComputeActivity(ctx context.Context, activity *Activity, efs EmissionFactorLookup) (float64, ActivityTrace, error) {
	ef, found, err := efs.EmissionFactorByKey(ctx, activity.EFKey)
	if err != nil {
		return 0, ActivityTrace{}, err
	}
	if !found {
		return 0, ActivityTrace{}, &EmissionFactorNotFoundError{Key: activity.EFKey}
	}

	inputs := activity.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	quantity, qtrace, err := ResolveQuantity(ef.Key, ef.ActivityIDFields, inputs)
	if err != nil {
		return 0, ActivityTrace{}, err
	}

	if ef.Value != nil {
		kg := quantity * *ef.Value
		return kg, ActivityTrace{
			Method:   MethodDirectValue,
			Quantity: quantity,
			EFValue:  ef.Value,
			QTrace:   qtrace,
			EFKey:    ef.Key,
			Meta:     ef.Meta,
		}, nil
	}

	perUnit, err := PerUnitCO2e(ef.GasBreakdown, ef.GWPVersion)
	if err != nil {
		return 0, ActivityTrace{}, err
	}
	kg := quantity * perUnit
	return kg, ActivityTrace{
		Method:      MethodGasBreakdown,
		Quantity:    quantity,
		PerUnitCO2e: &perUnit,
		QTrace:      qtrace,
		EFKey:       ef.Key,
		Meta:        ef.Meta,
	}, nil
}
