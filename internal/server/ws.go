package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/codehedgehog/virtlab/internal/controller"
)

const statusStreamInterval = time.Second

// handleStatusStream pushes the VM's state over a WebSocket once per
// second until the client disconnects or the VM disappears. Each frame
// is the same JSON document the REST state endpoint returns.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Reject unknown VMs before upgrading.
	if _, err := s.vms.GetState(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept")
		return
	}
	defer c.CloseNow()

	ctx := c.CloseRead(r.Context())

	ticker := time.NewTicker(statusStreamInterval)
	defer ticker.Stop()

	for {
		status, err := s.vms.GetState(ctx, name)
		if err != nil {
			if errors.Is(err, controller.ErrNotFound) {
				c.Close(websocket.StatusNormalClosure, "vm deleted")
			} else {
				c.Close(websocket.StatusInternalError, "state read failed")
			}
			return
		}
		if err := wsjson.Write(ctx, c, status); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// wsConn adapts a WebSocket to the terminal.Conn byte-stream interface.
// Input frames of either message type are accepted; output is sent as
// binary so escape sequences survive untouched.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageBinary, data)
}

// handleTerminal upgrades to a WebSocket and bridges it to the VM's
// shell. Target resolution failures are reported before upgrading so
// the client gets a proper HTTP status.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	owner := r.URL.Query().Get("owner")

	target, err := s.vms.ShellTarget(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept")
		return
	}
	defer c.CloseNow()

	if err := s.terms.Serve(r.Context(), &wsConn{c: c}, *target, name, owner); err != nil {
		s.log.WithError(err).Warnf("terminal session for %s", name)
		c.Close(websocket.StatusInternalError, "session failed")
		return
	}
	c.Close(websocket.StatusNormalClosure, "session ended")
}
