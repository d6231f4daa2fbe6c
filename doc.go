// Package graceful describes API resources declaratively: their query
// parameters, their serialized fields, and the rules that convert between a
// wire representation and an internal object. The declarations drive
// parameter decoding, body validation, and the self-description served on
// OPTIONS requests.
//
// Declarations are collected into ordered registries once, at definition
// time, and are read-only afterwards:
//
//	var userFields = graceful.Fields(
//	    graceful.DeclareField("id", graceful.NewIntField("user id", graceful.ReadOnly())),
//	    graceful.DeclareField("name", graceful.NewStringField("user name")),
//	    graceful.DeclareField("age", graceful.NewIntField("age in years", graceful.WithMin(0))),
//	)
//
// A registry can extend others. A redeclared name keeps its original
// position and takes the new declaration:
//
//	var adminFields = userFields.Extend(
//	    graceful.DeclareField("roles", graceful.NewStringField("granted roles", graceful.Many())),
//	)
//
// A Serializer converts in both directions. FromRepresentation never stops
// at the first problem; it reports every missing, forbidden, invalid and
// unparsable field in one *DeserializationError:
//
//	s := graceful.NewSerializer(userFields)
//	obj, err := s.FromRepresentation(graceful.Representation{"name": "Ann", "age": -1}, false)
//	// err.(*graceful.DeserializationError).Invalid["age"] == "-1 is not >= 0"
//
// Query parameters are decoded with DecodeParams. Required parameters that
// are absent are reported together; the first undecodable parameter stops
// decoding.
package graceful
