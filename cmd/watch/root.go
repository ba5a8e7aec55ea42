package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ValentinKolb/cloudstorage/cmd/kv"
	"github.com/ValentinKolb/cloudstorage/cmd/util"
	"github.com/ValentinKolb/cloudstorage/lib/cloudstorage"
	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cmd")

	// WatchCmd binds a key and prints its value on every change
	WatchCmd = &cobra.Command{
		Use:   "watch [key]",
		Short: "Print the value of a key on every change",
		Long: `Bind a key and print its value whenever it changes on this or another device.
The command runs until it receives SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}
)

func init() {
	key := "type"
	WatchCmd.Flags().String(key, "string", util.WrapString("Type of the value (bool, int, double, string, url, data)"))

	key = "default"
	WatchCmd.Flags().String(key, "", util.WrapString("Value shown while the key is unset. Parsed according to --type"))

	key = "metrics-endpoint"
	WatchCmd.Flags().String(key, "", util.WrapString("If set, serve Prometheus metrics of the facade at http://<endpoint>/metrics (e.g. localhost:9100)"))
}

func run(cmd *cobra.Command, args []string) error {
	session, err := util.OpenSession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	t, err := kv.ParseValueType(viper.GetString("type"))
	if err != nil {
		return err
	}

	stop, err := bind(session.Sync, t, args[0], viper.GetString("default"))
	if err != nil {
		return err
	}
	defer stop()

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		srv := serveMetrics(endpoint, session.Sync)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	// pull the current state once, later changes arrive through the binding
	session.Sync.Synchronize()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infof("received signal %s, shutting down", sig)
	return nil
}

// bind creates the binding for key and prints every value. The returned function releases it.
func bind(s *cloudsync.Sync, t kv.ValueType, key, def string) (func(), error) {
	switch t {
	case kv.TypeBool:
		d := false
		if def != "" {
			v, err := strconv.ParseBool(def)
			if err != nil {
				return nil, fmt.Errorf("default must be a boolean: %w", err)
			}
			d = v
		}
		return watch(cloudstorage.Bool(s, key, d, onError()), strconv.FormatBool), nil
	case kv.TypeInt:
		d := 0
		if def != "" {
			v, err := strconv.Atoi(def)
			if err != nil {
				return nil, fmt.Errorf("default must be an integer: %w", err)
			}
			d = v
		}
		return watch(cloudstorage.Int(s, key, d, onError()), strconv.Itoa), nil
	case kv.TypeDouble:
		d := 0.0
		if def != "" {
			v, err := strconv.ParseFloat(def, 64)
			if err != nil {
				return nil, fmt.Errorf("default must be a number: %w", err)
			}
			d = v
		}
		return watch(cloudstorage.Double(s, key, d, onError()), func(v float64) string {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}), nil
	case kv.TypeString:
		return watch(cloudstorage.String(s, key, def, onError()), strconv.Quote), nil
	case kv.TypeURL:
		var d *url.URL
		if def != "" {
			v, err := url.Parse(def)
			if err != nil {
				return nil, fmt.Errorf("default must be a URL: %w", err)
			}
			d = v
		}
		return watch(cloudstorage.URL(s, key, d, onError()), func(v *url.URL) string {
			if v == nil {
				return "<unset>"
			}
			return v.String()
		}), nil
	case kv.TypeData:
		var d []byte
		if def != "" {
			d = []byte(def)
		}
		return watch(cloudstorage.Data(s, key, d, onError()), func(v []byte) string {
			if v == nil {
				return "<unset>"
			}
			return fmt.Sprintf("%q (%d bytes)", v, len(v))
		}), nil
	default:
		return nil, errors.New("unsupported type")
	}
}

// watch prints the current value and every change of b
func watch[T any](b *cloudstorage.Binding[T], format func(T) string) func() {
	show := func(v T) {
		fmt.Printf("%s %s=%s\n", time.Now().Format(time.TimeOnly), b.Key(), format(v))
	}
	show(b.Value())
	remove := b.AddListener(show)
	return func() {
		remove()
		_ = b.Close()
	}
}

func onError() cloudstorage.Option {
	return cloudstorage.WithErrorHandler(func(key string, err error) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
	})
}

// serveMetrics serves the facade and process metrics in Prometheus format
func serveMetrics(endpoint string, s *cloudsync.Sync) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})

	srv := &http.Server{Addr: endpoint, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics endpoint %s failed: %v", endpoint, err)
		}
	}()
	log.Infof("serving metrics on http://%s/metrics", endpoint)
	return srv
}
