package rangeset

import "unsafe"

// addressOf returns the address of obj as a plain integer, for use in
// constructing a Range via FromObject. This is the one place in the
// package that looks at a real pointer; everything else operates on
// Address values.
func addressOf[T any](obj *T) Address {
	return Address(uintptr(unsafe.Pointer(obj))) //nolint:gosec // intentional address extraction
}

// sizeOf returns the size in bytes of a value of type T.
func sizeOf[T any](zero T) Address {
	return Address(unsafe.Sizeof(zero))
}
