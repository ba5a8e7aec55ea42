// Package testing provides a standardised conformance suite for
// implementations of the store.IStore interface.
//
// Every backend supplies a Harness: the store under test plus a function that
// writes a value the way another device would. The suite checks the plain
// key-value contract as well as change delivery through Watch.
//
// Example usage:
//
//	storetesting.RunStoreTests(t, "MyStore", func(t *testing.T) storetesting.Harness {
//		s := NewMyStore()
//		return storetesting.Harness{
//			Store:  s,
//			Remote: func(key string, value []byte) error { return writeFromOtherDevice(key, value) },
//		}
//	})
package testing
