// Package cloudsync provides the Sync facade: the single gateway between typed
// application values and a synchronised store.IStore.
//
// Values are stored with a one byte type tag in front of the payload:
//
//	bool:   1 byte (0 or 1)
//	int:    8 bytes, int64 big endian
//	double: 8 bytes, IEEE-754 bits big endian
//	string: UTF-8 bytes
//	url:    the string form of the URL
//	data:   raw bytes
//
// A read that finds a value of another type reports it as absent, exactly like
// a missing key. Writes are write-through; errors are logged and counted and
// also returned, so bindings and the CLI can report them.
//
// Synchronize is fire-and-forget. Calls that arrive while a synchronisation is
// running are merged into a single follow-up run, so a burst of writes leads to
// at most two store synchronisations.
//
// Observers: AddObserver registers one notification function per key and
// returns a Token. Registering the same key again replaces the old observer
// (last registration wins). RemoveObserver takes the token and only removes the
// registration it created; calling it again, or after the registration was
// replaced, does nothing.
//
// Example:
//
//	s := cloudsync.New(lstore.NewLocalStore(nil))
//	defer s.Close()
//
//	s.SetBool("flag", true)
//	s.Synchronize()
//	v, ok := s.Bool("flag") // true, true
package cloudsync
