package controller

import (
	"context"
	"log"
	"strconv"

	"salesloom/builder"
	"salesloom/models"
	"salesloom/store"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SequenceEditWS is the per-sequence live editing channel. Each connection
// runs one builder session: the client streams edit and gesture commands, the
// server streams back authoritative snapshots and semantic builder events.
type SequenceEditWS struct {
	Store    *store.SequenceStore
	Realtime *store.Realtime
	Logger   *log.Logger
}

func NewSequenceEditWS(st *store.SequenceStore, rt *store.Realtime, logger *log.Logger) *SequenceEditWS {
	return &SequenceEditWS{Store: st, Realtime: rt, Logger: logger}
}

// editCommand is one client frame.
type editCommand struct {
	Action string       `json:"action"`
	Name   string       `json:"name,omitempty"`
	Step   *models.Step `json:"step,omitempty"`
	StepID string       `json:"step_id,omitempty"`
	Index  int          `json:"index,omitempty"`
	Delta  int          `json:"delta,omitempty"`
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`

	ScrollOffset   int `json:"scroll_offset,omitempty"`
	ViewportHeight int `json:"viewport_height,omitempty"`
}

// snapshotFrame is the authoritative state pushed after every applied command
// or remote update.
type snapshotFrame struct {
	Type     string            `json:"type"`
	Sequence models.Sequence   `json:"sequence"`
	CanUndo  bool              `json:"can_undo"`
	CanRedo  bool              `json:"can_redo"`
	Drag     builder.DragState `json:"drag"`
}

type eventFrame struct {
	Type  string        `json:"type"`
	Event builder.Event `json:"event"`
}

type windowFrame struct {
	Type        string         `json:"type"`
	Window      builder.Window `json:"window"`
	TotalHeight int            `json:"total_height"`
}

func (h *SequenceEditWS) Handle(c *websocket.Conn) {
	defer c.Close()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		h.Logger.Printf("Invalid sequence id in ws path: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq, err := h.Store.Get(ctx, user.ID, uint(id))
	if err != nil {
		h.Logger.Printf("Failed to open editing session for sequence %d: %v", id, err)
		_ = c.WriteJSON(map[string]string{"type": "error", "error": "sequence not found"})
		return
	}

	origin := uuid.NewString()
	persistFailed := false

	// The sink runs on this goroutine only (commands, remote applies and
	// flushes are all handled below), so writing to the conn here is safe.
	sink := func(e builder.Event) {
		if e.Type == builder.EventPersistFailed {
			persistFailed = true
		}
		if err := c.WriteJSON(eventFrame{Type: "event", Event: e}); err != nil {
			h.Logger.Printf("Failed to write event frame: %v", err)
		}
	}

	sess := builder.NewSession(seq, h.Store, sink, builder.Options{
		Logger: logrus.WithFields(logrus.Fields{
			"component": "builder_session",
			"user_id":   user.ID,
		}),
	})

	remoteNotify := make(chan struct{}, 1)
	unsubscribe, err := h.Realtime.Subscribe(ctx, seq.ID, origin, func(remote models.Sequence) {
		sess.QueueRemoteUpdate(remote)
		select {
		case remoteNotify <- struct{}{}:
		default:
		}
	})
	if err != nil {
		h.Logger.Printf("Failed to subscribe to sequence %d channel: %v", seq.ID, err)
		return
	}
	defer unsubscribe()

	// Reader goroutine feeds the single event loop below; commands and queued
	// remote updates are interleaved between handlers, never inside one.
	commands := make(chan editCommand)
	go func() {
		defer close(commands)
		for {
			var cmd editCommand
			if err := c.ReadJSON(&cmd); err != nil {
				return
			}
			select {
			case commands <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.sendSnapshot(c, sess)

	for {
		select {
		case cmd, open := <-commands:
			if !open {
				// Connection closing: a final flush so a clean disconnect does
				// not lose acknowledged-optimistic edits.
				sess.Flush(ctx)
				return
			}
			if cmd.Action == "window" {
				if err := c.WriteJSON(windowFrame{
					Type:        "window",
					Window:      sess.Window(cmd.ScrollOffset, cmd.ViewportHeight),
					TotalHeight: sess.TotalHeight(),
				}); err != nil {
					h.Logger.Printf("Failed to write window frame: %v", err)
				}
				continue
			}

			h.apply(sess, cmd)

			wasDirty := sess.Dirty()
			persistFailed = false
			sess.Flush(ctx)
			if wasDirty && !persistFailed {
				if err := h.Realtime.Publish(ctx, origin, sess.Sequence()); err != nil {
					h.Logger.Printf("Failed to publish sequence %d update: %v", seq.ID, err)
				}
			}
			h.sendSnapshot(c, sess)

		case <-remoteNotify:
			sess.ApplyRemoteQueue()
			h.sendSnapshot(c, sess)
		}
	}
}

func (h *SequenceEditWS) apply(sess *builder.Session, cmd editCommand) {
	switch cmd.Action {
	case "rename":
		sess.Rename(cmd.Name)
	case "add_step":
		if cmd.Step != nil {
			sess.AddStep(*cmd.Step)
		}
	case "update_step":
		if cmd.Step != nil {
			sess.UpdateStep(*cmd.Step)
		}
	case "remove_step":
		sess.RemoveStep(cmd.StepID)
	case "undo":
		sess.Undo()
	case "redo":
		sess.Redo()
	case "validate":
		sess.Validate()
	case "pointer_down":
		sess.PointerDown(cmd.Index, builder.Point{X: cmd.X, Y: cmd.Y})
	case "pointer_move":
		sess.PointerMove(builder.Point{X: cmd.X, Y: cmd.Y})
	case "hover":
		sess.HoverOver(cmd.Index)
	case "pointer_up":
		sess.PointerUp()
	case "key_grab":
		sess.KeyGrab(cmd.Index)
	case "key_move":
		sess.KeyMove(cmd.Delta)
	case "key_commit":
		sess.KeyCommit()
	case "cancel":
		sess.CancelDrag()
	default:
		h.Logger.Printf("Unknown edit command %q", cmd.Action)
	}
}

func (h *SequenceEditWS) sendSnapshot(c *websocket.Conn, sess *builder.Session) {
	frame := snapshotFrame{
		Type:     "snapshot",
		Sequence: sess.Sequence(),
		CanUndo:  sess.CanUndo(),
		CanRedo:  sess.CanRedo(),
		Drag:     sess.DragState(),
	}
	if err := c.WriteJSON(frame); err != nil {
		h.Logger.Printf("Failed to write snapshot frame: %v", err)
	}
}
