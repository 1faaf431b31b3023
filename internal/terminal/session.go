// Package terminal tunnels interactive shell sessions between a client
// connection and a VM's SSH endpoint, recording each session as an
// asciinema cast file.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codehedgehog/virtlab/internal/controller"
	"github.com/codehedgehog/virtlab/internal/logger"
	"github.com/codehedgehog/virtlab/internal/metrics"
)

// Conn is the client side of a terminal session, typically a WebSocket.
// Read blocks until the client sends input; Write delivers guest output.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Dialer opens the upstream shell stream for a resolved target.
type Dialer func(ctx context.Context, target controller.Target) (io.ReadWriteCloser, error)

// Manager serves terminal sessions.
type Manager struct {
	dial         Dialer
	recordingDir string
	log          *logrus.Entry
}

// NewManager creates a session manager recording into recordingDir.
// dial defaults to DialShell.
func NewManager(dial Dialer, recordingDir string) *Manager {
	if dial == nil {
		dial = DialShell
	}
	return &Manager{
		dial:         dial,
		recordingDir: recordingDir,
		log:          logger.Component("terminal"),
	}
}

// Serve runs one terminal session: connect upstream, then pump bytes in
// both directions until either side closes or ctx is cancelled. Every
// byte that crosses is recorded before being forwarded. An upstream
// connect failure is reported to the client before the connection is
// given up.
func (m *Manager) Serve(ctx context.Context, conn Conn, target controller.Target, vmName, owner string) error {
	log := m.log.WithField("session", uuid.New().String())

	upstream, err := m.dial(ctx, target)
	if err != nil {
		msg := fmt.Sprintf("cannot reach %s: %v\r\n", vmName, err)
		_ = conn.Write(ctx, []byte(msg))
		return fmt.Errorf("upstream connect for %s: %w", vmName, err)
	}
	defer upstream.Close()

	rec, err := NewRecorder(m.recordingDir, vmName, owner, ptyCols, ptyRows)
	if err != nil {
		// The session is more useful than its recording; proceed without.
		log.WithError(err).Warnf("recording disabled for %s", vmName)
		rec = nil
	} else {
		defer rec.Close()
	}

	metrics.SessionOpened(vmName)
	defer metrics.SessionClosed(vmName)
	log.Infof("terminal session opened for %s", vmName)
	defer log.Infof("terminal session closed for %s", vmName)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unblock the upstream reader when the session ends.
	go func() {
		<-ctx.Done()
		upstream.Close()
	}()

	errCh := make(chan error, 2)

	// client -> guest
	go func() {
		for {
			data, err := conn.Read(ctx)
			if err != nil {
				errCh <- err
				return
			}
			if rec != nil {
				if err := rec.Input(data); err != nil {
					log.WithError(err).Warn("record input")
				}
			}
			if _, err := upstream.Write(data); err != nil {
				errCh <- err
				return
			}
		}
	}()

	// guest -> client
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := upstream.Read(buf)
			if n > 0 {
				data := buf[:n]
				if rec != nil {
					if recErr := rec.Output(data); recErr != nil {
						log.WithError(recErr).Warn("record output")
					}
				}
				if writeErr := conn.Write(ctx, data); writeErr != nil {
					errCh <- writeErr
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	// First pump to finish decides the session outcome; the cancel above
	// tears down the other.
	err = <-errCh
	cancel()

	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
