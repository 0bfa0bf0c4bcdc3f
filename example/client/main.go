package main

import (
	"bufio"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"unblock-toolkit/example/shared"
	"unblock-toolkit/netem"
	"unblock-toolkit/stream"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	f := new(shared.Flags)
	command := &cobra.Command{
		Use:   "client",
		Short: "Send stdin lines to the echo server and log the replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	f.Bind(command)

	if err := command.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(f *shared.Flags) error {
	log := f.Logger()

	// Connect to server
	conn, err := net.Dial("tcp", f.Addr)
	if err != nil {
		return err
	}
	var h io.ReadWriteCloser = conn
	if f.Emulated() {
		h = netem.New(conn, f.NetemConfig())
	}

	s := stream.New(h, f.StreamConfig(log, stream.Callbacks{
		Read: func(b []byte) {
			log.Infof("Received from server: %s", string(b))
		},
		Failed: func(err error) {
			log.WithError(err).Error("Connection failed")
		},
		Closed: func() {
			log.Debug("Connection closed")
		},
	}))
	log.WithField("strategy", s.Strategy().String()).Debug("Stream resolved")
	if err := s.Start(nil); err != nil {
		return err
	}
	log.Infof("Connected to %s", conn.RemoteAddr())

	lines := make(chan string)
	go scanRoutine(os.Stdin, lines)

	// Handle signals
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				s.Stop()
				return nil
			}
			log.Infof("Sending to server: %s", line)
			s.WriteAsync([]byte(line), func(b []byte, n int, args ...interface{}) {
				log.Debugf("Sent line %v", args[0])
			}, line)
		case sig := <-ch:
			log.Infof("Received signal %+v", sig)
			s.Stop()
			return nil
		case <-s.Done():
			return nil
		}
	}
}

func scanRoutine(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text() + "\n"
	}
}
