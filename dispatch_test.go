package voicetranslate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEvent(typ, data string) Event {
	return Event{Type: typ, Data: json.RawMessage(data)}
}

func TestDispatchInvokesHandlersInRegistrationOrder(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	var order []string
	d.on("ping", func(json.RawMessage) { order = append(order, "first") })
	d.on("ping", func(json.RawMessage) { order = append(order, "second") })

	d.dispatch(testEvent("ping", `{}`))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatchDeliversExactlyOncePerArrival(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	count := 0
	d.on("ping", func(json.RawMessage) { count++ })

	d.dispatch(testEvent("ping", `{}`))
	d.dispatch(testEvent("ping", `{}`))

	assert.Equal(t, 2, count)
}

func TestDispatchUnsubscribe(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	var got []string
	off := d.on("ping", func(json.RawMessage) { got = append(got, "a") })
	d.on("ping", func(json.RawMessage) { got = append(got, "b") })

	off()
	d.dispatch(testEvent("ping", `{}`))

	assert.Equal(t, []string{"b"}, got)
}

func TestDispatchUnsubscribeIsIdempotent(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	count := 0
	off := d.on("ping", func(json.RawMessage) { count++ })
	off()
	off()

	d.dispatch(testEvent("ping", `{}`))
	assert.Equal(t, 0, count)
}

func TestDispatchWildcardReceivesEveryEnvelope(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	var seen []Event
	d.onAny(func(ev Event) { seen = append(seen, ev) })

	d.dispatch(testEvent("ping", `{"a":1}`))
	d.dispatch(testEvent("unknown_type", `{"b":2}`))

	require.Len(t, seen, 2)
	assert.Equal(t, "ping", seen[0].Type)
	assert.JSONEq(t, `{"a":1}`, string(seen[0].Data))
	assert.Equal(t, "unknown_type", seen[1].Type)
}

func TestDispatchBuiltinRunsBeforeSubscribers(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	var order []string
	d.builtin = func(Event) { order = append(order, "builtin") }
	d.on("ping", func(json.RawMessage) { order = append(order, "subscriber") })
	d.onAny(func(Event) { order = append(order, "wildcard") })

	d.dispatch(testEvent("ping", `{}`))

	assert.Equal(t, []string{"builtin", "subscriber", "wildcard"}, order)
}

func TestDispatchUnknownTypeReachesOnlyItsSubscribers(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	pings := 0
	others := 0
	d.on("ping", func(json.RawMessage) { pings++ })
	d.on("something_else", func(json.RawMessage) { others++ })

	d.dispatch(testEvent("something_else", `{}`))

	assert.Equal(t, 0, pings)
	assert.Equal(t, 1, others)
}

func TestDispatchSurvivesPanickingHandler(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	called := false
	d.on("ping", func(json.RawMessage) { panic("boom") })
	d.on("ping", func(json.RawMessage) { called = true })

	assert.NotPanics(t, func() { d.dispatch(testEvent("ping", `{}`)) })
	assert.True(t, called, "later handlers still run after a panic")
}

func TestDispatchHandlerMayUnsubscribeDuringDispatch(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	var off func()
	count := 0
	off = d.on("ping", func(json.RawMessage) {
		count++
		off()
	})

	d.dispatch(testEvent("ping", `{}`))
	d.dispatch(testEvent("ping", `{}`))

	assert.Equal(t, 1, count)
}
