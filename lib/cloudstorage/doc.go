// Package cloudstorage binds typed values to keys of a cloudsync.Sync.
//
// A Binding is the declared-property surface for application and UI code: it is
// created once per property with a key and a default, reads the store on every
// Value call, writes through on Set, and notifies listeners when the value
// changes locally or on another device.
//
// Supported kinds:
//
//	Bool, Int, Double, String, URL, Data       stored value or default
//	OptionalBool ... OptionalData              stored value or nil; setting nil clears the key
//	IntEnum, StringEnum                        enumeration cases; unknown values read as default
//	Codable                                    structured values encoded with JSON, GOB or YAML
//
// Errors never reach the caller of Value or Set. Decode failures fall back to
// the default, encode failures skip the write; both are logged and passed to
// the handler set with WithErrorHandler.
//
// Lifecycle: a binding registers an observer for its key when it is created and
// must be released with Close when its owner goes away. Only one binding per
// key receives remote change notifications: the one created last.
//
// Listeners run on the goroutine that caused the change. A UI toolkit with a
// single render goroutine has to dispatch the update itself.
package cloudstorage
