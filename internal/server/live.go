package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Makepad-fr/scaffold/internal/hn"
)

const writeWait = 10 * time.Second

// live streams story-client snapshots over a websocket until the store
// settles, then closes the connection normally. A stream that outlives the
// render timeout gets the partial state and a try-again-later close. The
// store is stopped as soon as the client goes away.
func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	c := category(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// the hijacked connection no longer cancels r.Context on disconnect
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if s.cfg.RenderTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RenderTimeout)
		defer cancel()
	}
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	st, stop := s.startStore(ctx)
	defer stop()

	updates, unsubscribe := st.Subscribe()
	defer unsubscribe()

	if err := st.Dispatch(hn.SelectCategory{Category: c}); err != nil {
		s.log.Error().Err(err).Msg("dispatch")
		return
	}

	settled := make(chan error, 1)
	go func() { settled <- st.Settle(ctx) }()

	for {
		select {
		case <-gone:
			s.log.Debug().Str("category", string(c)).Msg("live client gone")
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(state.HN); err != nil {
				s.log.Debug().Err(err).Msg("websocket write")
				return
			}
		case err := <-settled:
			code, reason := websocket.CloseNormalClosure, "settled"
			if err != nil {
				// the store shares ctx, so Settle may report ErrClosed on timeout
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return
				}
				s.log.Warn().Str("category", string(c)).Msg("live stream hit the render timeout")
				code, reason = websocket.CloseTryAgainLater, "render timeout"
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st.State().HN); err != nil {
				return
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
			return
		}
	}
}
