package boundary

import (
	"reflect"
)

// Node is a value produced by rendering, e.g. a UI element. A Node is
// opaque to this package, except that nil (including a typed nil) is not a
// valid node.
type Node any

// IsValidNode reports whether node may be returned from a render. Nil, and
// nil values of a nillable type, are not valid.
func IsValidNode(node Node) bool {
	if node == nil {
		return false
	}
	switch v := reflect.ValueOf(node); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return !v.IsNil()
	default:
		return true
	}
}
