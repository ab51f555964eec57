package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicFanOut(t *testing.T) {
	d := NewDispatcher()

	var got []string
	d.RowAdded.Subscribe(func(e RowAdded) { got = append(got, "a:"+e.RowID) })
	d.RowAdded.Subscribe(func(e RowAdded) { got = append(got, "b:"+e.RowID) })

	d.RowAdded.Publish(RowAdded{TableID: "lines", RowID: "r1"})

	assert.Equal(t, []string{"a:r1", "b:r1"}, got)
	assert.Equal(t, 0, d.TableAdded.Len())
}

func TestTopicUnsubscribe(t *testing.T) {
	var topic Topic[LayoutChanged]

	calls := 0
	cancel := topic.Subscribe(func(LayoutChanged) { calls++ })
	topic.Publish(LayoutChanged{Reason: "panel"})
	cancel()
	topic.Publish(LayoutChanged{Reason: "panel"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, topic.Len())
}

func TestTopicSubscribeDuringPublish(t *testing.T) {
	var topic Topic[TableAdded]

	calls := 0
	topic.Subscribe(func(TableAdded) {
		calls++
		topic.Subscribe(func(TableAdded) { calls++ })
	})
	topic.Publish(TableAdded{TableID: "t"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, topic.Len())
}
