package graceful

// Option configures a field or parameter declaration at construction time.
// Options that do not apply to the declaration kind are ignored.
type Option func(*declaration)

// declaration holds the settings shared by fields and parameters.
type declaration struct {
	label      string
	source     string
	many       bool
	readOnly   bool
	writeOnly  bool
	required   bool
	defaultRaw *string
	container  func([]any) any
	validators []Validator
	spec       *SpecRef

	boolTokens *[2]any
}

func newDeclaration(opts []Option) *declaration {
	d := &declaration{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SpecRef points to the external specification a value follows.
type SpecRef struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// WithLabel sets the human readable label used in descriptions.
func WithLabel(label string) Option {
	return func(d *declaration) {
		d.label = label
	}
}

// WithSource sets the internal attribute a field reads from and writes to.
// The wildcard "*" passes the whole instance to the field.
func WithSource(source string) Option {
	return func(d *declaration) {
		d.source = source
	}
}

// WithValidators appends validators run on every coerced value.
func WithValidators(v ...Validator) Option {
	return func(d *declaration) {
		d.validators = append(d.validators, v...)
	}
}

// WithMin appends a Min validator.
func WithMin(lower float64) Option {
	return WithValidators(Min(lower))
}

// WithMax appends a Max validator.
func WithMax(upper float64) Option {
	return WithValidators(Max(upper))
}

// Many marks the value as a homogeneous ordered sequence.
func Many() Option {
	return func(d *declaration) {
		d.many = true
	}
}

// ReadOnly marks a field that appears in output but never accepts input.
func ReadOnly() Option {
	return func(d *declaration) {
		d.readOnly = true
	}
}

// WriteOnly marks a field that accepts input but never appears in output.
func WriteOnly() Option {
	return func(d *declaration) {
		d.writeOnly = true
	}
}

// Required marks a parameter that must be present in the query.
func Required() Option {
	return func(d *declaration) {
		d.required = true
	}
}

// WithDefault sets the raw wire value used when a parameter is absent.
// It is decoded exactly like client input.
func WithDefault(raw string) Option {
	return func(d *declaration) {
		d.defaultRaw = &raw
	}
}

// WithContainer sets the factory that turns the decoded values of a
// many-valued parameter into the final collection.
func WithContainer(fn func([]any) any) Option {
	return func(d *declaration) {
		d.container = fn
	}
}

// WithSpec sets a machine-readable reference to the format specification.
func WithSpec(title, url string) Option {
	return func(d *declaration) {
		d.spec = &SpecRef{Title: title, URL: url}
	}
}

// WithRepresentations replaces the accepted and emitted tokens of a
// boolean field with exactly falseRepr and trueRepr.
func WithRepresentations(falseRepr, trueRepr any) Option {
	return func(d *declaration) {
		d.boolTokens = &[2]any{falseRepr, trueRepr}
	}
}

// SetContainer builds a set-like container keyed by the decoded values.
// Decoded values must be comparable.
func SetContainer(values []any) any {
	set := make(map[any]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
