package main

import (
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"unblock-toolkit/example/shared"
	"unblock-toolkit/metrics"
	"unblock-toolkit/netem"
	"unblock-toolkit/stream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	shared.Flags
	MetricsAddr string
}

type server struct {
	flags     *flags
	log       *logrus.Logger
	collector *metrics.Collector
	listener  net.Listener

	streams map[string]*stream.Stream
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func main() {
	f := new(flags)
	command := &cobra.Command{
		Use:   "server",
		Short: "TCP echo server running every connection on a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	f.Bind(command)
	command.Flags().StringVarP(&f.MetricsAddr, "metrics-addr", "m", "127.0.0.1:9100", "Serve Prometheus metrics at this address.")

	if err := command.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(f *flags) error {
	log := f.Logger()
	registry := prometheus.NewRegistry()

	l, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return err
	}
	s := &server{
		flags:     f,
		log:       log,
		collector: metrics.New(metrics.Config{Registry: registry}),
		listener:  l,
		streams:   make(map[string]*stream.Stream),
	}
	log.Infof("Server listening at %s", l.Addr())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	hs := &http.Server{Addr: f.MetricsAddr, Handler: mux}
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server error: %+v", err)
		}
	}()
	log.Infof("Metrics served at http://%s/metrics", f.MetricsAddr)

	s.wg.Add(1)
	go s.listenRoutine()

	// Handle signals
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	log.Infof("Received signal %+v", <-ch)

	// Cleanup
	l.Close()
	hs.Close()
	s.stopAll()
	s.wg.Wait()
	return nil
}

func (s *server) listenRoutine() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Errorf("Listen error: %+v", err)
			}
			return
		}
		s.serve(conn)
	}
}

func (s *server) serve(conn net.Conn) {
	name := conn.RemoteAddr().String()
	var st *stream.Stream
	cb := s.collector.Instrument(name, stream.Callbacks{
		Read: func(b []byte) {
			s.log.Infof("Received from client %s: %s", name, string(b))
			st.Write(b)
		},
		Failed: func(err error) {
			s.log.WithError(err).Debugf("Client %s failed", name)
		},
		CallbackFailed: func(err error, ev stream.Event) {
			s.log.WithError(err).Warnf("Callback %s failed for client %s", ev, name)
		},
	})

	var h io.ReadWriteCloser = conn
	if s.flags.Emulated() {
		h = netem.New(conn, s.flags.NetemConfig())
	}
	st = stream.New(h, s.flags.StreamConfig(s.log, cb))

	s.mu.Lock()
	s.streams[name] = st
	s.mu.Unlock()

	if err := st.Start(nil); err != nil {
		s.log.Errorf("Start error: %+v", err)
		return
	}
	s.log.Infof("Client %s connected", name)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-st.Done()
		s.mu.Lock()
		delete(s.streams, name)
		s.mu.Unlock()
		s.collector.Forget(name)
		s.log.Infof("Client %s disconnected", name)
	}()
}

func (s *server) stopAll() {
	s.mu.Lock()
	streams := make([]*stream.Stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.Unlock()
	for _, st := range streams {
		st.Stop()
	}
}

