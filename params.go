package graceful

import (
	"net/url"
	"slices"
)

// DecodeParams decodes query values with the declared parameters.
//
// Every absent required parameter is reported together in one
// *MissingParamsError before any value is decoded. Decoding then stops at the
// first parameter that fails coercion or validation with an
// *InvalidParamError. Absent parameters without a default are omitted from
// the result. A parameter that is not many-valued but appears several times
// in the query uses its first occurrence. Blank occurrences such as "?page="
// are dropped, so a parameter given only blank values counts as absent.
func DecodeParams(params *Registry[Param], query url.Values) (map[string]any, error) {
	var missing []string
	for name, p := range params.All() {
		if p.Base().Required && len(nonBlank(query, name)) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingParamsError{Names: missing}
	}

	decoded := make(map[string]any, params.Len())
	for name, p := range params.All() {
		base := p.Base()

		raw := nonBlank(query, name)
		if len(raw) == 0 {
			if base.Default == nil {
				continue
			}
			raw = []string{*base.Default}
		}

		value, err := decodeParam(p, raw)
		if err != nil {
			return nil, &InvalidParamError{Name: name, Err: err}
		}
		decoded[name] = value
	}

	return decoded, nil
}

func nonBlank(query url.Values, name string) []string {
	return slices.DeleteFunc(slices.Clone(query[name]), func(v string) bool { return v == "" })
}

func decodeParam(p Param, raw []string) (any, error) {
	base := p.Base()

	if !base.Many {
		v, err := p.Value(raw[0])
		if err != nil {
			return nil, err
		}
		if err := base.Validate(v); err != nil {
			return nil, err
		}
		return v, nil
	}

	values := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := p.Value(r)
		if err != nil {
			return nil, err
		}
		if err := base.Validate(v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if base.Container != nil {
		return base.Container(values), nil
	}
	return values, nil
}
