package notibus

import (
	"reflect"
	"time"
)

// Observe registers a callback for single-argument payloads of type T,
// deriving the key's signature from the type parameter. Posts with any other
// payload shape are rejected before delivery, so fn always receives a T.
func Observe[T any](b *Bus, key Key, fn func(T)) (ObserverID, error) {
	sig := SignatureFor(reflect.TypeOf((*T)(nil)).Elem())
	return b.AddObserver(key, sig, func(args ...any) any {
		if v, ok := args[0].(T); ok {
			fn(v)
		}
		return nil
	})
}

// Observe2 registers a callback for two-argument payloads of types A and B.
func Observe2[A, B any](b *Bus, key Key, fn func(A, B)) (ObserverID, error) {
	sig := SignatureFor(reflect.TypeOf((*A)(nil)).Elem(), reflect.TypeOf((*B)(nil)).Elem())
	return b.AddObserver(key, sig, func(args ...any) any {
		a, okA := args[0].(A)
		bb, okB := args[1].(B)
		if okA && okB {
			fn(a, bb)
		}
		return nil
	})
}

// ObserveAny registers a fully type-erased callback under the wildcard
// signature; the key then accepts posts of any payload shape. Only valid as
// the key's first observer unless the key is already wildcard.
func ObserveAny(b *Bus, key Key, fn func(args ...any)) (ObserverID, error) {
	return b.AddObserver(key, AnySig, func(args ...any) any {
		fn(args...)
		return nil
	})
}

// Request performs a request/response exchange whose response payload is a
// single value of type T; the response signature is derived from the type
// parameter.
func Request[T any](b *Bus, requestKey, responseKey Key, timeout time.Duration, args ...any) (T, error) {
	var zero T
	resp, err := b.PostAndWait(requestKey, responseKey, SignatureFor(reflect.TypeOf((*T)(nil)).Elem()), timeout, args...)
	if err != nil {
		return zero, err
	}
	if len(resp) != 1 {
		return zero, ErrPayloadTypeMismatch
	}
	v, ok := resp[0].(T)
	if !ok {
		return zero, ErrPayloadTypeMismatch
	}
	return v, nil
}
