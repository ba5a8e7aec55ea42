package util

import (
	"context"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
	"github.com/ValentinKolb/cloudstorage/lib/common"
	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetLogger("cmd")

// Session bundles the store and the facade opened for one command
type Session struct {
	Config *common.Config
	Store  store.IStore
	Sync   *cloudsync.Sync
}

// OpenSession reads the configuration of cmd, initializes logging and opens the store and the facade
func OpenSession(cmd *cobra.Command) (*Session, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}

	conf, err := GetConfig()
	if err != nil {
		return nil, err
	}

	if err := common.InitLoggers(conf.Log); err != nil {
		return nil, err
	}
	log.Debugf("configuration:%s", conf)

	s, err := OpenStore(conf)
	if err != nil {
		return nil, err
	}

	return &Session{
		Config: conf,
		Store:  s,
		Sync:   cloudsync.New(s),
	}, nil
}

// Synchronize blocks until the store is synchronised or timeout expires
func (s *Session) Synchronize(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Sync.SynchronizeContext(ctx)
}

// Close closes the facade and the store
func (s *Session) Close() error {
	_ = s.Sync.Close()
	return s.Store.Close()
}
