package cloudsync

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Token identifies one observer registration. The zero Token is never issued.
type Token uint64

type observer struct {
	token  Token
	notify func()
}

// observerRegistry maps key → current observer and token → key.
type observerRegistry struct {
	next   atomic.Uint64
	byKey  *xsync.MapOf[string, observer]
	tokens *xsync.MapOf[Token, string]
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{
		byKey:  xsync.NewMapOf[string, observer](),
		tokens: xsync.NewMapOf[Token, string](),
	}
}

// add registers notify for key and reports whether an older registration was replaced.
func (r *observerRegistry) add(key string, notify func()) (Token, bool) {
	token := Token(r.next.Add(1))
	r.tokens.Store(token, key)

	prev, replaced := r.byKey.LoadAndStore(key, observer{token: token, notify: notify})
	if replaced {
		r.tokens.Delete(prev.token)
	}
	return token, replaced
}

// remove drops the registration of token if it is still the current one for its key.
func (r *observerRegistry) remove(token Token) {
	key, ok := r.tokens.LoadAndDelete(token)
	if !ok {
		return
	}
	r.byKey.Compute(key, func(current observer, loaded bool) (observer, bool) {
		// delete only our own registration
		return current, !loaded || current.token == token
	})
}

func (r *observerRegistry) lookup(key string) (func(), bool) {
	o, ok := r.byKey.Load(key)
	if !ok {
		return nil, false
	}
	return o.notify, true
}

func (r *observerRegistry) len() int {
	return r.byKey.Size()
}

func (r *observerRegistry) clear() {
	r.byKey.Clear()
	r.tokens.Clear()
}
