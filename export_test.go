package graceful

// Test-only exports for internal functions.
var (
	CleanDoc      = cleanDoc
	IsNumericKind = isNumericKind
	JSONFieldName = jsonFieldName
	SameValue     = sameValue
)

// NegotiateEncoder reports the content type picked for an Accept header.
func NegotiateEncoder(accept string) (string, bool) {
	enc, ok := newCodecRegistry(nil, nil).negotiate(accept)
	if !ok {
		return "", false
	}
	return enc.ContentType(), true
}

// DecoderFor reports the decoder picked for a Content-Type header.
func DecoderFor(contentType string) (string, bool) {
	dec, ok := newCodecRegistry(nil, nil).decoderFor(contentType)
	if !ok {
		return "", false
	}
	return dec.ContentType(), true
}
