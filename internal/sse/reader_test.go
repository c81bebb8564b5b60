package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields the source n bytes at a time, simulating arbitrary
// network chunk boundaries.
type chunkReader struct {
	data []byte
	n    int
	pos  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.n
	if end > len(c.data) {
		end = len(c.data)
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += n
	return n, nil
}

func collect(t *testing.T, r io.Reader) (events []Event, doneCalls int, errs []error) {
	t.Helper()
	h := Handler{
		OnEvent: func(ev Event) { events = append(events, ev) },
		OnDone:  func() { doneCalls++ },
		OnError: func(err error) { errs = append(errs, err) },
	}
	_ = Read(context.Background(), r, h)
	return events, doneCalls, errs
}

func TestRead_BasicEvents(t *testing.T) {
	stream := "data: {\"type\":\"token\",\"content\":\"Hi\"}\n" +
		"data: {\"type\":\"token\",\"content\":\" there\"}\n" +
		"data: {\"type\":\"stream_end\"}\n"

	events, doneCalls, errs := collect(t, strings.NewReader(stream))

	require.Len(t, events, 3)
	assert.Equal(t, "Hi", events[0].TokenText())
	assert.Equal(t, " there", events[1].TokenText())
	assert.True(t, events[2].IsEnd())
	assert.Equal(t, 1, doneCalls) // normal closure
	assert.Empty(t, errs)
}

func TestRead_ReassemblesLinesAcrossChunks(t *testing.T) {
	// One JSON event split across many tiny reads must still decode as a
	// single event.
	stream := "data: {\"type\":\"token\",\"content\":\"chunked payload\"}\n" +
		"data: {\"type\":\"done\"}\n"

	for _, n := range []int{1, 3, 7} {
		events, _, errs := collect(t, &chunkReader{data: []byte(stream), n: n})
		require.Len(t, events, 2, "chunk size %d", n)
		assert.Equal(t, "chunked payload", events[0].TokenText())
		assert.Empty(t, errs)
	}
}

func TestRead_DoneSentinel(t *testing.T) {
	stream := "data: [DONE]\n" +
		"data: {\"type\":\"token\",\"content\":\"after\"}\n"

	events, doneCalls, _ := collect(t, strings.NewReader(stream))

	// Sentinel fires OnDone but reading continues, and the normal
	// closure fires it once more.
	assert.Equal(t, 2, doneCalls)
	require.Len(t, events, 1)
	assert.Equal(t, "after", events[0].TokenText())
}

func TestRead_SkipsNoiseLines(t *testing.T) {
	stream := ": keepalive comment\n" +
		"\n" +
		"data: not json at all\n" +
		"event: custom\n" +
		"data: {\"type\":\"token\",\"content\":\"ok\"}\n"

	events, _, errs := collect(t, strings.NewReader(stream))

	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].TokenText())
	assert.Empty(t, errs)
}

func TestRead_TrailingLineWithoutNewline(t *testing.T) {
	stream := "data: {\"type\":\"token\",\"content\":\"no newline\"}"

	events, doneCalls, _ := collect(t, strings.NewReader(stream))

	require.Len(t, events, 1)
	assert.Equal(t, "no newline", events[0].TokenText())
	assert.Equal(t, 1, doneCalls)
}

func TestRead_NilReader(t *testing.T) {
	var gotErr error
	err := Read(context.Background(), nil, Handler{OnError: func(e error) { gotErr = e }})
	assert.ErrorIs(t, err, ErrNoBody)
	assert.ErrorIs(t, gotErr, ErrNoBody)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestRead_ReadErrorReportedOnce(t *testing.T) {
	var errs []error
	doneCalls := 0
	err := Read(context.Background(), failingReader{}, Handler{
		OnDone:  func() { doneCalls++ },
		OnError: func(e error) { errs = append(errs, e) },
	})
	require.Error(t, err)
	assert.Len(t, errs, 1)
	assert.Zero(t, doneCalls, "no OnDone after error")
}

func TestRead_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := "data: {\"type\":\"token\",\"content\":\"x\"}\n"
	var events []Event
	err := Read(ctx, strings.NewReader(stream), Handler{
		OnEvent: func(ev Event) { events = append(events, ev) },
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, events)
}

func TestEvent_Accessors(t *testing.T) {
	assert.Equal(t, "tok", Event{Type: TypeToken, Token: "tok"}.TokenText())
	assert.Equal(t, "c", Event{Type: TypeToken, Content: "c", Token: "tok"}.TokenText())

	assert.Equal(t, "c", Event{Content: "c", Text: "t", Message: "m"}.MessageText())
	assert.Equal(t, "t", Event{Text: "t", Message: "m"}.MessageText())
	assert.Equal(t, "m", Event{Type: TypeMessage, Message: "m"}.MessageText())

	assert.True(t, Event{Type: TypeMessage}.IsMessage())
	assert.True(t, Event{Content: "hello"}.IsMessage())
	assert.True(t, Event{Text: "hello"}.IsMessage())
	// A bare message field without type or content/text is not promoted.
	assert.False(t, Event{Message: "hello"}.IsMessage())
	// Tokens are never messages even though they carry content.
	assert.False(t, Event{Type: TypeToken, Content: "hello"}.IsMessage())

	assert.True(t, Event{Type: TypeStreamEnd}.IsEnd())
	assert.True(t, Event{Type: TypeDone}.IsEnd())
	assert.False(t, Event{Type: TypeToken}.IsEnd())
}
