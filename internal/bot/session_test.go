// SPDX-License-Identifier: MIT

package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersatzworld/smarthomebot/internal/alert"
	"github.com/ersatzworld/smarthomebot/internal/camera"
	"github.com/ersatzworld/smarthomebot/internal/config"
	"github.com/ersatzworld/smarthomebot/internal/gateway"
	"github.com/ersatzworld/smarthomebot/internal/media"
)

type mockGateway struct {
	mu      sync.Mutex
	texts   []string
	menus   []string
	answers []string
}

func (g *mockGateway) SendText(ctx context.Context, chatID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *mockGateway) SendMenu(ctx context.Context, chatID int64, text string, buttons []gateway.Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.menus = append(g.menus, text)
	return nil
}

func (g *mockGateway) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	return nil
}

func (g *mockGateway) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	return nil
}

func (g *mockGateway) SendChatAction(ctx context.Context, chatID int64, action gateway.Action) error {
	return nil
}

func (g *mockGateway) AnswerCallback(ctx context.Context, queryID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, text)
	return nil
}

func (g *mockGateway) lastText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.texts) == 0 {
		return ""
	}
	return g.texts[len(g.texts)-1]
}

func (g *mockGateway) textCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.texts)
}

func (g *mockGateway) menuCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.menus)
}

type memSettings struct {
	mu        sync.Mutex
	intervals map[int64]int
}

func newMemSettings() *memSettings {
	return &memSettings{intervals: make(map[int64]int)}
}

func (s *memSettings) SnapshotInterval(chatID int64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secs, ok := s.intervals[chatID]
	return secs, ok, nil
}

func (s *memSettings) SetSnapshotInterval(chatID int64, secs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals[chatID] = secs
	return nil
}

type scheduleCall struct {
	chatID int64
	secs   int
}

type mockScheduler struct {
	mu        sync.Mutex
	schedules []scheduleCall
	cancels   []int64
	snapshots [][]string
}

func (m *mockScheduler) Snapshot(ctx context.Context, chatID int64, cameraIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, cameraIDs)
}

func (m *mockScheduler) Schedule(chatID int64, secs int, cameraIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = append(m.schedules, scheduleCall{chatID, secs})
	return nil
}

func (m *mockScheduler) Cancel(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels = append(m.cancels, chatID)
}

type fixture struct {
	m      *Manager
	gw     *mockGateway
	sched  *mockScheduler
	store  *memSettings
	alerts *alert.State
}

func newFixture(t *testing.T, matching config.Matching) *fixture {
	t.Helper()
	reg, err := camera.NewRegistry([]camera.Camera{
		{ID: "door", Name: "Front Door", SnapshotURL: "http://cam/door.jpg"},
		{ID: "garden", Name: "Garden", SnapshotURL: "http://cam/garden.jpg"},
	})
	require.NoError(t, err)

	f := &fixture{
		gw:     &mockGateway{},
		sched:  &mockScheduler{},
		store:  newMemSettings(),
		alerts: alert.NewState(),
	}
	f.m = NewManager(context.Background(), f.gw, f.alerts, reg, f.store, f.sched, &media.Transcoder{}, matching, time.Hour)
	t.Cleanup(f.m.Close)
	return f
}

func (f *fixture) text(t *testing.T, chatID int64, text string) {
	t.Helper()
	before := f.gw.textCount() + f.gw.menuCount()
	f.m.Dispatch(gateway.TextMessage{ChatID: chatID, Text: text})
	require.Eventually(t, func() bool {
		return f.gw.textCount()+f.gw.menuCount() > before
	}, 5*time.Second, 10*time.Millisecond, "no reply to %q", text)
}

func TestIntervalNotConfigured(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.text(t, 42, "/snapshot interval")
	assert.Equal(t, msgIntervalUnset, f.gw.lastText())
}

func TestIntervalSetAndReport(t *testing.T) {
	f := newFixture(t, config.MatchExact)

	f.text(t, 42, "/snapshot interval 15")
	assert.Equal(t, msgIntervalSet(15), f.gw.lastText())
	assert.Contains(t, f.sched.schedules, scheduleCall{42, 15})

	f.text(t, 42, "/snapshot interval")
	assert.Equal(t, msgIntervalCurrent(15), f.gw.lastText())
}

func TestIntervalZeroDisables(t *testing.T) {
	f := newFixture(t, config.MatchExact)

	f.text(t, 42, "/snapshot interval 30")
	f.text(t, 42, "/snapshot interval 0")
	assert.Equal(t, msgIntervalOff, f.gw.lastText())
	assert.Contains(t, f.sched.schedules, scheduleCall{42, 0})

	secs, ok, err := f.store.SnapshotInterval(42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, secs)
}

func TestIntervalRejectsGarbage(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.text(t, 42, "/snapshot interval soon")
	assert.Contains(t, f.gw.lastText(), "Invalid interval")
	assert.Empty(t, f.sched.schedules)
}

func TestEnableDisableToggle(t *testing.T) {
	f := newFixture(t, config.MatchExact)

	f.text(t, 42, "/disable")
	assert.False(t, f.alerts.IsEnabled())
	assert.Equal(t, msgAlertsOff, f.gw.lastText())

	f.text(t, 42, "/enable")
	assert.True(t, f.alerts.IsEnabled())

	f.text(t, 42, "/toggle")
	assert.False(t, f.alerts.IsEnabled())
	assert.Equal(t, msgToggled(false), f.gw.lastText())
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.text(t, 42, "/selfdestruct")
	assert.Equal(t, msgUnknownCommand, f.gw.lastText())
}

func TestFreeTextExactMode(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.text(t, 42, "please turn alerts off")
	assert.Equal(t, msgNotTalkative, f.gw.lastText())
	assert.True(t, f.alerts.IsEnabled(), "exact mode must not match keywords")
}

func TestFreeTextLooseMode(t *testing.T) {
	f := newFixture(t, config.MatchLoose)

	f.text(t, 42, "please turn alerts off")
	assert.False(t, f.alerts.IsEnabled())
	assert.Equal(t, msgAlertsOff, f.gw.lastText())

	f.text(t, 42, "switch it on again")
	assert.True(t, f.alerts.IsEnabled())
}

func TestSnapshotMenu(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.text(t, 42, "/snapshot")
	assert.Equal(t, 1, f.gw.menuCount())
}

func TestCallbackCameraSnapshot(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.m.Dispatch(gateway.CallbackQuery{ChatID: 42, QueryID: "q1", Data: "door"})

	require.Eventually(t, func() bool {
		f.sched.mu.Lock()
		defer f.sched.mu.Unlock()
		return len(f.sched.snapshots) == 1
	}, 5*time.Second, 10*time.Millisecond)

	f.sched.mu.Lock()
	assert.Equal(t, []string{"door"}, f.sched.snapshots[0])
	f.sched.mu.Unlock()

	// The camera menu is shown again after the fetch completes.
	require.Eventually(t, func() bool { return f.gw.menuCount() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestUnsupportedContent(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.m.Dispatch(gateway.Unsupported{ChatID: 42, Kind: "sticker"})
	require.Eventually(t, func() bool { return f.gw.textCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, msgNirvana("sticker"), f.gw.lastText())
}

func TestSessionRestoresScheduledJob(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	require.NoError(t, f.store.SetSnapshotInterval(42, 25))

	f.text(t, 42, "/help")

	f.sched.mu.Lock()
	defer f.sched.mu.Unlock()
	assert.Contains(t, f.sched.schedules, scheduleCall{42, 25})
}

func TestCloseCancelsJobAndJoinsTasks(t *testing.T) {
	f := newFixture(t, config.MatchExact)
	f.text(t, 42, "/help")

	s, ok := f.m.Session(42)
	require.True(t, ok)

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		s.spawn("test", func(ctx context.Context) {
			started <- struct{}{}
			<-release
		})
	}
	<-started
	<-started
	assert.Equal(t, 2, s.InFlight())

	closed := make(chan struct{})
	go func() {
		f.m.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while workers were still in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after workers finished")
	}

	assert.Zero(t, s.InFlight())
	assert.Contains(t, f.sched.cancels, int64(42))
}
