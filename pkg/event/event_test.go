package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/storefront/pkg/event"
)

func TestDispatcherFansOut(t *testing.T) {
	d := event.NewDispatcher()

	var named, all []string
	d.Listen(event.NewOrder, func(_ context.Context, name string, _ any) { named = append(named, name) })
	d.ListenAll(func(_ context.Context, name string, _ any) { all = append(all, name) })

	d.Publish(context.Background(), event.NewOrder, map[string]string{"id": "o1"})
	d.Publish(context.Background(), event.ProductUpdated, nil)

	assert.Equal(t, []string{event.NewOrder}, named)
	assert.Equal(t, []string{event.NewOrder, event.ProductUpdated}, all)
}

func TestDispatcherSurvivesPanickingListener(t *testing.T) {
	d := event.NewDispatcher()
	called := false
	d.ListenAll(func(context.Context, string, any) { panic("boom") })
	d.ListenAll(func(context.Context, string, any) { called = true })

	assert.NotPanics(t, func() { d.Publish(context.Background(), event.NewOrder, nil) })
	assert.True(t, called)
}

func TestRecorder(t *testing.T) {
	var r event.Recorder
	var p event.Publisher = &r
	p.Publish(context.Background(), event.ProductUpdated, "x")
	assert.Equal(t, []string{event.ProductUpdated}, r.Names())
	assert.Equal(t, "x", r.Events[0].Payload)
}
