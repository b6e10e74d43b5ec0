package domain

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("remote entity not found")
	ErrUnavailable     = errors.New("remote unavailable")
	ErrMissingField    = errors.New("missing field")
	ErrUnknownAction   = errors.New("unknown action")
)

type Arg struct {
	Name  string
	Value any
}

// Require returns ErrInvalidArgument naming the first arg that is nil, an
// empty string, or an empty map or slice.
func Require(args ...Arg) error {
	for _, a := range args {
		if isEmpty(a.Value) {
			return fmt.Errorf("%w: %s can't be empty", ErrInvalidArgument, a.Name)
		}
	}
	return nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
