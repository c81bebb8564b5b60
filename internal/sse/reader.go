package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrNoBody is returned when the response has no readable stream.
var ErrNoBody = errors.New("no readable stream in response")

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	maxLineSize = 1024 * 1024
)

// Handler receives stream callbacks. Any field may be nil.
type Handler struct {
	// OnEvent is called for every decoded JSON event, in arrival order.
	OnEvent func(Event)
	// OnDone is called when the [DONE] sentinel arrives and again when
	// the stream closes normally.
	OnDone func()
	// OnError is called once on read failure or cancellation; no further
	// callbacks fire afterwards.
	OnError func(error)
}

// Read consumes r line by line and dispatches events to h until the
// stream ends or ctx is cancelled.
//
// Line reassembly across network chunks is handled by the buffered
// reader: a partial trailing line in one chunk is completed by the next,
// so a JSON payload split across reads is never parsed prematurely.
func Read(ctx context.Context, r io.Reader, h Handler) error {
	if r == nil {
		err := ErrNoBody
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			if h.OnError != nil {
				h.OnError(ctx.Err())
			}
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, dataPrefix)

		if strings.TrimSpace(data) == doneSentinel {
			if h.OnDone != nil {
				h.OnDone()
			}
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// Non-JSON data lines are expected noise (comments,
			// keepalives), not errors.
			continue
		}
		if h.OnEvent != nil {
			h.OnEvent(ev)
		}
	}

	if err := scanner.Err(); err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}

	if h.OnDone != nil {
		h.OnDone()
	}
	return nil
}
