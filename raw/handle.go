package raw

import "reflect"

// Addresser is implemented by handles backed by native memory.
type Addresser interface {
	Address() uintptr
}

// IsNull reports whether obj is a failed construction: nil, a nil pointer,
// or a handle whose address is zero.
func IsNull(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			return true
		}
	}
	if a, ok := obj.(Addresser); ok {
		return a.Address() == 0
	}
	return false
}

// CheckHandle returns a NullHandleError when obj is null.
func CheckHandle(name string, obj any) error {
	if IsNull(obj) {
		return &NullHandleError{Name: name}
	}
	return nil
}
