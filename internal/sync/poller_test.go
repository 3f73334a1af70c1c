package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/pubky-agent/internal/checkpoint"
	"github.com/nhle/pubky-agent/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCheckpoints struct {
	value  int64
	hasSet bool
	getErr error
	setErr error
	sets   []int64
}

func (f *fakeCheckpoints) Get(ctx context.Context) (int64, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	if !f.hasSet {
		return 0, checkpoint.ErrNoCheckpoint
	}
	return f.value, nil
}

func (f *fakeCheckpoints) Set(ctx context.Context, ts int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.value = ts
	f.hasSet = true
	f.sets = append(f.sets, ts)
	return nil
}

type fakeFeed struct {
	pages  [][]model.Notification
	err    error
	sinces []int64

	// fetched, when set, receives one signal on the first fetch.
	fetched chan struct{}
}

func (f *fakeFeed) Notifications(ctx context.Context, user string, since int64) ([]model.Notification, error) {
	f.sinces = append(f.sinces, since)
	if f.fetched != nil {
		select {
		case f.fetched <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

type fakeHandler struct {
	err        error
	dispatched []model.Notification
}

func (f *fakeHandler) Dispatch(ctx context.Context, tickID string, n model.Notification) error {
	f.dispatched = append(f.dispatched, n)
	return f.err
}

func mentionAt(ts int64, actor, postURI string) model.Notification {
	return model.Notification{
		Timestamp: ts,
		Body: model.NotificationBody{
			Type:        "mention",
			MentionedBy: actor,
			PostURI:     postURI,
		},
	}
}

func followAt(ts int64, actor string) model.Notification {
	return model.Notification{
		Timestamp: ts,
		Body:      model.NotificationBody{Type: "follow", FollowedBy: actor},
	}
}

func newPoller(t *testing.T, cps *fakeCheckpoints, feed *fakeFeed, handler *fakeHandler) *Poller {
	t.Helper()
	sched := NewScheduler(5*time.Second, 40*time.Second)
	return NewPoller("bot123", cps, feed, handler, sched, zaptest.NewLogger(t).Sugar())
}

func TestTick_DispatchesAndAdvancesCheckpoint(t *testing.T) {
	cps := &fakeCheckpoints{value: 100, hasSet: true}
	feed := &fakeFeed{pages: [][]model.Notification{{
		mentionAt(105, "alice", "pubky://alice/pub/pubky.app/posts/u1"),
		followAt(103, "bob"),
	}}}
	handler := &fakeHandler{}

	poller := newPoller(t, cps, feed, handler)
	require.NoError(t, poller.RunTick(context.Background()))

	assert.Equal(t, []int64{100}, feed.sinces)
	require.Len(t, handler.dispatched, 2)
	assert.Equal(t, "pubky://alice/pub/pubky.app/posts/u1", handler.dispatched[0].Body.PostURI)

	// Watermark lands one past the newest timestamp seen.
	assert.Equal(t, []int64{106}, cps.sets)
}

func TestTick_FirstRunStartsFromZero(t *testing.T) {
	cps := &fakeCheckpoints{}
	feed := &fakeFeed{}
	poller := newPoller(t, cps, feed, &fakeHandler{})

	require.NoError(t, poller.RunTick(context.Background()))
	assert.Equal(t, []int64{0}, feed.sinces)
}

func TestTick_StaleNotificationsAreFiltered(t *testing.T) {
	cps := &fakeCheckpoints{value: 100, hasSet: true}
	feed := &fakeFeed{pages: [][]model.Notification{{
		mentionAt(100, "old", "pubky://old/pub/pubky.app/posts/p0"),
		mentionAt(95, "older", "pubky://older/pub/pubky.app/posts/p1"),
	}}}
	handler := &fakeHandler{}

	poller := newPoller(t, cps, feed, handler)
	require.NoError(t, poller.RunTick(context.Background()))

	assert.Empty(t, handler.dispatched)
	assert.Empty(t, cps.sets, "nothing newer seen, watermark untouched")
}

func TestTick_FeedErrorLeavesCheckpointAlone(t *testing.T) {
	cps := &fakeCheckpoints{value: 100, hasSet: true}
	feed := &fakeFeed{err: errors.New("nexus unreachable")}

	poller := newPoller(t, cps, feed, &fakeHandler{})
	require.Error(t, poller.RunTick(context.Background()))

	assert.Empty(t, cps.sets)
	assert.Equal(t, int64(100), cps.value)
}

func TestTick_CheckpointStoreErrorFailsTick(t *testing.T) {
	cps := &fakeCheckpoints{getErr: errors.New("homeserver down")}
	feed := &fakeFeed{}

	poller := newPoller(t, cps, feed, &fakeHandler{})
	require.Error(t, poller.RunTick(context.Background()))

	assert.Empty(t, feed.sinces, "no fetch when the watermark is unreadable")
}

func TestTick_DispatchFailureDoesNotStopBatch(t *testing.T) {
	cps := &fakeCheckpoints{value: 100, hasSet: true}
	feed := &fakeFeed{pages: [][]model.Notification{{
		mentionAt(105, "alice", "pubky://alice/pub/pubky.app/posts/u1"),
		mentionAt(107, "carol", "pubky://carol/pub/pubky.app/posts/u2"),
	}}}
	handler := &fakeHandler{err: errors.New("generation failed")}

	poller := newPoller(t, cps, feed, handler)
	require.NoError(t, poller.RunTick(context.Background()))

	assert.Len(t, handler.dispatched, 2)
	// Failed dispatches still move the watermark; processing is
	// at-least-once, not exactly-once.
	assert.Equal(t, []int64{108}, cps.sets)
}

func TestTick_CheckpointMonotonicAcrossTicks(t *testing.T) {
	cps := &fakeCheckpoints{value: 100, hasSet: true}
	feed := &fakeFeed{pages: [][]model.Notification{
		{mentionAt(105, "alice", "pubky://alice/pub/pubky.app/posts/u1")},
		{followAt(110, "bob")},
		{},
	}}

	poller := newPoller(t, cps, feed, &fakeHandler{})
	require.NoError(t, poller.RunTick(context.Background()))
	require.NoError(t, poller.RunTick(context.Background()))
	require.NoError(t, poller.RunTick(context.Background()))

	assert.Equal(t, []int64{100, 106, 111}, feed.sinces)
	assert.Equal(t, []int64{106, 111}, cps.sets)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cps := &fakeCheckpoints{}
	feed := &fakeFeed{fetched: make(chan struct{}, 1)}

	poller := newPoller(t, cps, feed, &fakeHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx)
	}()

	// Let the first tick go through, then stop the loop.
	select {
	case <-feed.fetched:
	case <-time.After(time.Second):
		t.Fatal("poller never fetched")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
