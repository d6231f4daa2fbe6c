package graceful

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// baseParams are declared on every resource.
var baseParams = Params(
	DeclareParam("indent", NewIntParam(`
		JSON output indentation. Set to 0 if output should not be formatted.
	`, WithDefault("0"))),
)

// Resource ties a parameter registry and a serializer to a named API
// resource and renders its self-description.
type Resource struct {
	name       string
	details    string
	kind       string
	methods    []string
	params     *Registry[Param]
	serializer *Serializer
	logger     *slog.Logger
	limiter    Middleware

	encoders []Encoder
	decoders []Decoder
	codecs   *codecRegistry
}

// ResourceOption configures a Resource.
type ResourceOption func(*Resource)

// WithDetails sets the human readable resource description.
func WithDetails(details string) ResourceOption {
	return func(r *Resource) {
		r.details = details
	}
}

// WithKind sets the described resource type, e.g. "object" or "list".
func WithKind(kind string) ResourceOption {
	return func(r *Resource) {
		r.kind = kind
	}
}

// WithParams adds query parameters. They are merged on top of the
// parameters every resource declares, so "indent" can be overridden.
func WithParams(params *Registry[Param]) ResourceOption {
	return func(r *Resource) {
		r.params = NewRegistry([]*Registry[Param]{r.params, params})
	}
}

// WithSerializer sets the serializer for the resource representation.
func WithSerializer(s *Serializer) ResourceOption {
	return func(r *Resource) {
		r.serializer = s
	}
}

// WithMethods declares the HTTP methods the resource handles.
func WithMethods(methods ...string) ResourceOption {
	return func(r *Resource) {
		r.methods = append(r.methods, methods...)
	}
}

// WithLogger sets the logger used for decode failures.
func WithLogger(logger *slog.Logger) ResourceOption {
	return func(r *Resource) {
		r.logger = logger
	}
}

// WithPagination declares the page and page_size parameters used by
// PaginatedListHandler. Declare them again in a later WithParams to change
// their defaults.
func WithPagination() ResourceOption {
	return WithParams(PaginationParams())
}

// WithRateLimit limits each client's requests to the resource's Handler.
func WithRateLimit(cfg RateLimitConfig) ResourceOption {
	return func(r *Resource) {
		r.limiter = RateLimit(cfg)
	}
}

// WithEncoder registers an additional description encoder.
func WithEncoder(enc Encoder) ResourceOption {
	return func(r *Resource) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional representation decoder.
func WithDecoder(dec Decoder) ResourceOption {
	return func(r *Resource) {
		r.decoders = append(r.decoders, dec)
	}
}

// NewResource creates a Resource with the given options.
func NewResource(name string, opts ...ResourceOption) *Resource {
	r := &Resource{
		name:   name,
		params: baseParams,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.codecs = newCodecRegistry(r.encoders, r.decoders)
	return r
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Params returns the parameter registry.
func (r *Resource) Params() *Registry[Param] { return r.params }

// Serializer returns the resource serializer, or nil.
func (r *Resource) Serializer() *Serializer { return r.serializer }

// Methods returns the declared methods. OPTIONS is always included.
func (r *Resource) Methods() []string {
	methods := slices.Clone(r.methods)
	if !slices.Contains(methods, http.MethodOptions) {
		methods = append(methods, http.MethodOptions)
	}
	return methods
}

// RequireParams decodes query with the resource parameters.
func (r *Resource) RequireParams(query url.Values) (map[string]any, error) {
	params, err := DecodeParams(r.params, query)
	if err != nil {
		r.logger.Debug("params rejected", "resource", r.name, "err", err)
		return nil, err
	}
	return params, nil
}

// ValidatedObject decodes body according to contentType and converts it
// with the resource serializer.
func (r *Resource) ValidatedObject(contentType string, body io.Reader, partial bool) (Object, error) {
	if r.serializer == nil {
		return nil, fmt.Errorf("resource %s has no serializer", r.name)
	}

	dec, ok := r.codecs.decoderFor(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
	}

	var rep Representation
	rr := &readRecorder{r: body}
	if err := dec.Decode(rr, &rep); err != nil {
		if mbe, ok := rr.tooLarge(); ok {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, mbe.Limit)
		}
		return nil, &ProblemDetail{
			Type:   "about:blank",
			Title:  "Malformed representation",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		}
	}
	if rep == nil {
		rep = Representation{}
	}

	obj, err := r.serializer.FromRepresentation(rep, partial)
	if err != nil {
		attrs := []any{"resource", r.name, "partial", partial}
		var de *DeserializationError
		if errors.As(err, &de) {
			attrs = append(attrs,
				slog.Any("missing", de.Missing),
				slog.Any("forbidden", de.Forbidden),
				slog.Any("invalid", de.Invalid),
				slog.Any("failed", de.Failed),
			)
		} else {
			attrs = append(attrs, "err", err)
		}
		r.logger.Debug("representation rejected", attrs...)
		return nil, err
	}
	return obj, nil
}

// Envelope is the response body of a resource: request metadata and the
// rendered content.
type Envelope struct {
	Meta    map[string]any `json:"meta" yaml:"meta"`
	Content any            `json:"content" yaml:"content"`
}

// Retrieve renders a single instance.
func (r *Resource) Retrieve(params map[string]any, obj Object) (*Envelope, error) {
	if r.serializer == nil {
		return nil, fmt.Errorf("resource %s has no serializer", r.name)
	}
	content, err := r.serializer.ToRepresentation(obj)
	if err != nil {
		return nil, err
	}
	return &Envelope{Meta: map[string]any{"params": params}, Content: content}, nil
}

// List renders every instance in order.
func (r *Resource) List(params map[string]any, objs []Object) (*Envelope, error) {
	if r.serializer == nil {
		return nil, fmt.Errorf("resource %s has no serializer", r.name)
	}
	content := make([]Representation, 0, len(objs))
	for _, obj := range objs {
		rep, err := r.serializer.ToRepresentation(obj)
		if err != nil {
			return nil, err
		}
		content = append(content, rep)
	}
	return &Envelope{Meta: map[string]any{"params": params}, Content: content}, nil
}

// Render writes v as JSON, indented by the decoded "indent" parameter.
func Render(w io.Writer, params map[string]any, v any) error {
	enc := json.NewEncoder(w)
	if n, ok := params["indent"].(int); ok && n > 0 {
		enc.SetIndent("", strings.Repeat(" ", n))
	}
	return enc.Encode(v)
}

// ResourceDescription is the self-description served on OPTIONS.
type ResourceDescription struct {
	Name    string       `json:"name" yaml:"name"`
	Type    string       `json:"type,omitempty" yaml:"type,omitempty"`
	Path    string       `json:"path" yaml:"path"`
	Details string       `json:"details" yaml:"details"`
	Methods []string     `json:"methods" yaml:"methods"`
	Params  Descriptions `json:"params" yaml:"params"`
	Fields  Descriptions `json:"fields" yaml:"fields"`
}

// Describe documents the resource as served at path.
func (r *Resource) Describe(path string) ResourceDescription {
	details := r.details
	if strings.TrimSpace(details) == "" {
		details = "This resource does not have description yet"
	}

	params := make(Descriptions, 0, r.params.Len())
	for name, p := range r.params.All() {
		params = append(params, Described{Name: name, Description: p.Describe()})
	}

	var fields Descriptions
	if r.serializer != nil {
		fields = r.serializer.Describe()
	}

	return ResourceDescription{
		Name:    r.name,
		Type:    r.kind,
		Path:    path,
		Details: cleanDoc(details),
		Methods: r.Methods(),
		Params:  params,
		Fields:  fields,
	}
}

// OptionsHandler serves the resource description in the format requested
// by the Accept header.
func (r *Resource) OptionsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		enc, ok := r.codecs.negotiate(req.Header.Get("Accept"))
		if !ok {
			WriteRequestProblem(w, req, &ProblemDetail{
				Type:   "about:blank",
				Title:  http.StatusText(http.StatusNotAcceptable),
				Status: http.StatusNotAcceptable,
				Detail: "no description encoder for " + req.Header.Get("Accept"),
			})
			return
		}

		w.Header().Set("Allow", strings.Join(r.Methods(), ", "))
		w.Header().Set("Content-Type", enc.ContentType())
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		enc.Encode(w, r.Describe(req.URL.Path))
	})
}

// WriteDescription writes the description as indented JSON to w.
func (r *Resource) WriteDescription(w io.Writer, path string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Describe(path))
}

// WriteDescriptionYAML writes the description as YAML to w.
func (r *Resource) WriteDescriptionYAML(w io.Writer, path string) error {
	return yamlCodec{}.Encode(w, r.Describe(path))
}
