package net

import (
	"context"
	"errors"
	"fmt"

	"CrayonBoard/internal/state"

	"github.com/gorilla/websocket"
)

// Follow connects to a host's mirror socket and restores every newer
// snapshot into scene, calling onUpdate after each one. Snapshots older
// than the one already shown are dropped. It returns nil when ctx ends or
// the host closes the connection normally.
func Follow(ctx context.Context, url string, scene *state.Scene, onUpdate func(rev uint64)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("follow %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	state.Logger().Info("[NET] following", "url", url)
	var shown uint64
	seen := false
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("follow %s: %w", url, err)
		}
		if msg.Type != MsgSnapshot {
			state.Logger().Debug("[NET] ignoring message", "type", msg.Type)
			continue
		}
		if seen && msg.Revision <= shown {
			state.Logger().Debug("[NET] stale snapshot", "revision", msg.Revision, "shown", shown)
			continue
		}
		if err := scene.Restore(state.Snapshot(msg.Scene)); err != nil {
			if errors.Is(err, state.ErrCorruptSnapshot) {
				state.Logger().Warn("[NET] dropping bad snapshot", "revision", msg.Revision, "err", err)
				continue
			}
			return err
		}
		shown, seen = msg.Revision, true
		if onUpdate != nil {
			onUpdate(msg.Revision)
		}
	}
}
