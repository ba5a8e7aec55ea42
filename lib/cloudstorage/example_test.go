package cloudstorage_test

import (
	"fmt"

	"github.com/ValentinKolb/cloudstorage/lib/cloudstorage"
	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
	"github.com/ValentinKolb/cloudstorage/lib/store/lstore"
)

type Theme int

const (
	ThemeSystem Theme = iota
	ThemeLight
	ThemeDark
)

func Example() {
	backend := lstore.NewLocalStore(nil)
	defer backend.Close()

	s := cloudsync.New(backend)
	defer s.Close()

	theme := cloudstorage.IntEnum(s, "theme", ThemeSystem, []Theme{ThemeSystem, ThemeLight, ThemeDark})
	defer theme.Close()

	remove := theme.AddListener(func(t Theme) {
		fmt.Println("theme changed to", t)
	})
	defer remove()

	fmt.Println("initial theme", theme.Value())
	theme.Set(ThemeDark)
	fmt.Println("current theme", theme.Value())

	// Output:
	// initial theme 0
	// theme changed to 2
	// current theme 2
}
