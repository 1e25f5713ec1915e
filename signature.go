package notibus

import (
	"reflect"
	"strconv"
	"strings"
)

// Signature is a canonical fingerprint of an ordered payload argument type
// list. Two signatures compare equal exactly when their argument lists have
// identical types in identical order, with pointer and value types kept
// distinct. A key's first observer fixes the key's signature; every later
// registration and every post against that key is validated against it
// before any callback runs.
type Signature string

// AnySig is the wildcard signature for fully type-erased observers. A bucket
// whose first observer registered with AnySig accepts posts of any payload
// shape.
const AnySig Signature = "*"

// nilType is the fingerprint token for an untyped nil argument.
const nilType = "<nil>"

// SignatureOf computes the signature of a payload value bundle. Typed nil
// pointers fingerprint as their pointer type; untyped nils get a dedicated
// token so they never collide with a concrete type.
func SignatureOf(args ...any) Signature {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg == nil {
			parts[i] = nilType
			continue
		}
		parts[i] = typeToken(reflect.TypeOf(arg))
	}
	return Signature(strings.Join(parts, "|"))
}

// SignatureFor computes the signature for an ordered list of argument types,
// for registrations that know their payload shape without a value in hand.
func SignatureFor(types ...reflect.Type) Signature {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = typeToken(t)
	}
	return Signature(strings.Join(parts, "|"))
}

// typeToken fingerprints one type. Named types are qualified with their full
// import path, not just the package base name, so types from distinct
// packages that happen to share a name never collide; composite kinds recurse
// to their element types to keep the qualification.
func typeToken(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeToken(t.Elem())
	case reflect.Slice:
		return "[]" + typeToken(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + typeToken(t.Elem())
	case reflect.Map:
		return "map[" + typeToken(t.Key()) + "]" + typeToken(t.Elem())
	case reflect.Chan:
		return t.ChanDir().String() + " " + typeToken(t.Elem())
	default:
		if pkg := t.PkgPath(); pkg != "" {
			return pkg + "." + t.Name()
		}
		return t.String()
	}
}

// accepts reports whether a payload posted with sig may be delivered to a
// bucket holding s.
func (s Signature) accepts(sig Signature) bool {
	return s == AnySig || s == sig
}
