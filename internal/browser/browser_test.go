package browser

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/scene"
	"github.com/slicer/sequences/internal/sequence"
	"github.com/slicer/sequences/internal/timeline"
)

func newScene() *scene.Scene {
	return scene.New(scene.WithIDGenerator(scene.NewSequentialGenerator("n")))
}

func newSeq(t *testing.T, name string, values ...string) *sequence.Sequence {
	t.Helper()
	s := sequence.New(name, sequence.WithItemIDs(scene.NewSequentialGenerator(name)))
	s.SetID(name)
	for _, v := range values {
		n := node.NewText()
		n.Text = name + "@" + v
		_, err := s.SetDataNodeAtValue(n, v)
		require.NoError(t, err)
	}
	return s
}

func newBrowser(sc *scene.Scene) *Browser {
	return New("browser", sc, WithID("b1"))
}

func TestBrowser_Defaults(t *testing.T) {
	b := newBrowser(newScene())

	assert.Equal(t, "b1", b.ID())
	assert.Equal(t, -1, b.SelectedItemNumber())
	assert.Nil(t, b.Master())
	assert.Equal(t, PlaybackSettings{RateFps: 10, Looped: true, ItemSkipping: true}, b.Playback())
	assert.Equal(t, SamplingLimitedToPlaybackRate, b.Recording().Sampling)
	assert.Equal(t, IndexDisplay{Mode: IndexDisplayAsIndexValue, Format: "%.2f"}, b.IndexDisplay())
}

func TestBrowser_IDFromScene(t *testing.T) {
	b := New("browser", newScene())
	assert.Equal(t, "n-1", b.ID())
}

func TestBrowser_FirstAttachedBecomesMaster(t *testing.T) {
	b := newBrowser(newScene())
	master := newSeq(t, "master", "0", "1")

	postfix, err := b.AddSynchronized(master)
	require.NoError(t, err)

	assert.Equal(t, "0", postfix)
	assert.Same(t, master, b.Master())
	assert.Equal(t, 0, b.SelectedItemNumber())

	again, err := b.AddSynchronized(master)
	require.NoError(t, err)
	assert.Equal(t, "0", again)
	assert.Equal(t, 1, b.Len())
}

func TestBrowser_EmptyMasterSelectsNothing(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "master"))
	assert.Equal(t, -1, b.SelectedItemNumber())
}

func TestBrowser_AddSynchronizedRejectsIncompatible(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "master", "0"))

	other := newSeq(t, "frames")
	other.SetIndexName("frame")
	_, err := b.AddSynchronized(other)
	assert.ErrorIs(t, err, ErrIncompatible)
	assert.False(t, b.IsSynchronized(other))

	textual := newSeq(t, "labels")
	textual.SetIndexType(timeline.Text)
	_, err = b.AddSynchronized(textual)
	assert.ErrorIs(t, err, ErrIncompatible)
	assert.Equal(t, 1, b.Len())
}

func TestBrowser_SetMasterSwapsAndReresolvesSelection(t *testing.T) {
	b := newBrowser(newScene())
	a := newSeq(t, "a", "0", "1", "2", "3")
	c := newSeq(t, "c", "0", "2.5")
	b.SetMaster(a)
	cPostfix, err := b.AddSynchronized(c)
	require.NoError(t, err)
	require.True(t, b.SetSelectedItemNumber(3))

	got := b.SetMaster(c)

	assert.Equal(t, cPostfix, got)
	assert.Same(t, c, b.Master())
	assert.Equal(t, 2, b.Len(), "old master stays synchronized")
	assert.Same(t, a, b.Entries()[1].Sequence())
	assert.Equal(t, 1, b.SelectedItemNumber(), "closest previous to 3 is 2.5")
}

func TestBrowser_SetMasterSameIsNoop(t *testing.T) {
	b := newBrowser(newScene())
	a := newSeq(t, "a", "0", "1")
	b.SetMaster(a)
	b.SetSelectedItemNumber(1)

	assert.Equal(t, "0", b.SetMaster(a))
	assert.Equal(t, 1, b.SelectedItemNumber())
}

func TestBrowser_SetMasterUnattachedReplacesAll(t *testing.T) {
	sc := newScene()
	b := newBrowser(sc)
	a := newSeq(t, "a", "0")
	c := newSeq(t, "c", "0")
	b.SetMaster(a)
	_, err := b.AddSynchronized(c)
	require.NoError(t, err)

	d := newSeq(t, "d", "5", "6")
	postfix := b.SetMaster(d)

	assert.Equal(t, "2", postfix, "postfixes are never reused")
	assert.Equal(t, 1, b.Len())
	assert.Same(t, d, b.Master())
	assert.Equal(t, 0, b.SelectedItemNumber())
}

func TestBrowser_SetMasterNilRemovesAll(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "a", "0"))

	assert.Equal(t, "", b.SetMaster(nil))
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, -1, b.SelectedItemNumber())
}

func TestBrowser_RemoveSequenceStopsPlaybackAndDropsOwnedProxy(t *testing.T) {
	sc := newScene()
	b := newBrowser(sc)
	master := newSeq(t, "master", "0", "1")
	owned := newSeq(t, "owned", "0")
	borrowed := newSeq(t, "borrowed", "0")
	b.SetMaster(master)

	ownedProxy, err := b.AddProxyCopy(owned, node.NewText())
	require.NoError(t, err)
	external := node.NewText()
	_, err = b.SetProxy(borrowed, external, Borrowed)
	require.NoError(t, err)
	require.Equal(t, 2, sc.Len())

	b.SetPlaybackActive(true)
	require.True(t, b.RemoveSequence(owned))
	assert.False(t, b.Playback().Active)
	_, ok := sc.Node(ownedProxy.ID())
	assert.False(t, ok, "owned proxy leaves the scene")

	require.True(t, b.RemoveSequence(borrowed))
	_, ok = sc.Node(external.ID())
	assert.True(t, ok, "borrowed proxy stays")
	assert.False(t, b.IsProxy(external.ID()))

	assert.False(t, b.RemoveSequence(borrowed))
}

func TestBrowser_RemoveMasterPromotesNext(t *testing.T) {
	b := newBrowser(newScene())
	a := newSeq(t, "a", "0", "1", "2")
	c := newSeq(t, "c", "0")
	b.SetMaster(a)
	_, err := b.AddSynchronized(c)
	require.NoError(t, err)
	b.SetSelectedItemNumber(2)

	b.RemoveSequence(a)

	assert.Same(t, c, b.Master())
	assert.Equal(t, 0, b.SelectedItemNumber(), "selection clamped to the new master")
}

func TestBrowser_RemoveAllClearsEntriesAndProxies(t *testing.T) {
	sc := newScene()
	b := newBrowser(sc)
	a := newSeq(t, "a", "0")
	c := newSeq(t, "c", "0")
	d := newSeq(t, "d", "0")
	b.SetMaster(a)
	_, _ = b.AddSynchronized(c)
	_, _ = b.AddSynchronized(d)
	for _, s := range []*sequence.Sequence{a, c, d} {
		_, err := b.AddProxyCopy(s, node.NewText())
		require.NoError(t, err)
	}

	modified := 0
	b.AddListener(func(n Notification) {
		if n.Event == EventModified {
			modified++
		}
	})
	b.RemoveAll()

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, sc.Len())
	assert.Equal(t, -1, b.SelectedItemNumber())
	assert.Equal(t, 1, modified, "one coalesced notification")
}

func TestBrowser_SelectNext(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		looped    bool
		start     int
		increment int
		want      int
		stopped   bool
	}{
		{"unset lands on first", 3, true, -1, -5, 0, false},
		{"forward", 3, true, 0, 1, 1, false},
		{"loop forward wraps", 2, true, 1, 1, 0, false},
		{"loop backward wraps", 2, true, 0, -1, 1, false},
		{"loop far backward", 3, true, 0, -4, 2, false},
		{"loop skip", 3, true, 1, 5, 0, false},
		{"no loop forward rewinds", 3, false, 2, 1, 0, true},
		{"no loop backward lands on last", 3, false, 0, -1, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBrowser(newScene())
			values := make([]string, tt.items)
			for i := range values {
				values[i] = strconv.Itoa(i)
			}
			b.SetMaster(newSeq(t, "m", values...))
			b.SetPlaybackLooped(tt.looped)
			require.True(t, b.SetSelectedItemNumber(tt.start))
			b.SetPlaybackActive(true)

			got := b.SelectNext(tt.increment)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, b.SelectedItemNumber())
			assert.Equal(t, !tt.stopped, b.Playback().Active)
		})
	}
}

func TestBrowser_SelectNextEmptyMaster(t *testing.T) {
	b := newBrowser(newScene())
	count := 0
	b.AddListener(func(Notification) { count++ })

	assert.Equal(t, -1, b.SelectNext(1))
	assert.Equal(t, -1, b.SelectedItemNumber())

	b.SetMaster(newSeq(t, "m"))
	count = 0
	assert.Equal(t, -1, b.SelectNext(1))
	assert.Equal(t, 0, count)
}

func TestBrowser_SelectNextNotifiesOnce(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "m", "0", "1"))
	b.SetPlaybackLooped(false)
	b.SetSelectedItemNumber(1)
	b.SetPlaybackActive(true)

	var events []Event
	b.AddListener(func(n Notification) { events = append(events, n.Event) })
	b.SelectNext(1)

	assert.Equal(t, []Event{EventModified, EventMasterAdvanced}, events)
}

func TestBrowser_SelectFirstLast(t *testing.T) {
	b := newBrowser(newScene())
	assert.Equal(t, -1, b.SelectFirst())
	assert.Equal(t, -1, b.SelectLast())

	b.SetMaster(newSeq(t, "m", "0", "1", "2"))
	assert.Equal(t, 2, b.SelectLast())
	assert.Equal(t, 0, b.SelectFirst())
}

func TestBrowser_SetSelectedItemNumberRange(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "m", "0", "1"))

	assert.False(t, b.SetSelectedItemNumber(2))
	assert.False(t, b.SetSelectedItemNumber(-2))
	assert.True(t, b.SetSelectedItemNumber(-1))
	assert.Equal(t, -1, b.SelectedItemNumber())
}

func TestBrowser_ClampSelectionWhenMasterEmpties(t *testing.T) {
	b := newBrowser(newScene())
	m := newSeq(t, "m", "0", "1")
	b.SetMaster(m)
	b.SetSelectedItemNumber(1)

	m.RemoveDataNodeAtValue("1")
	b.ClampSelection()
	assert.Equal(t, 0, b.SelectedItemNumber())

	m.RemoveDataNodeAtValue("0")
	b.ClampSelection()
	assert.Equal(t, -1, b.SelectedItemNumber())
}

func TestBrowser_PlaybackAndRecordingExclusive(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "m", "0"))

	b.SetRecordingActive(true)
	b.SetPlaybackActive(true)
	assert.True(t, b.Playback().Active)
	assert.False(t, b.Recording().Active)

	b.SetRecordingActive(true)
	assert.True(t, b.Recording().Active)
	assert.False(t, b.Playback().Active)
}

func TestBrowser_SetPlaybackRateRejectsNegative(t *testing.T) {
	b := newBrowser(newScene())
	assert.False(t, b.SetPlaybackRateFps(-1))
	assert.True(t, b.SetPlaybackRateFps(0))
	assert.Equal(t, 0.0, b.Playback().RateFps)
}

func TestBrowser_ContinuousSnapshotIndexValue(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("browser", newScene(), WithNow(func() time.Time { return now }))
	b.SetMaster(newSeq(t, "m", "0", "2.5"))

	b.SetRecordingActive(true)
	assert.Equal(t, now.Add(-2500*time.Millisecond), b.Recording().TimeOrigin, "origin continues the timeline")

	_, ok := b.SnapshotIndexValue()
	assert.False(t, ok, "too soon after the previous snapshot")

	now = now.Add(time.Second)
	v, ok := b.SnapshotIndexValue()
	require.True(t, ok)
	assert.Equal(t, "3.5", v)

	now = now.Add(50 * time.Millisecond)
	_, ok = b.SnapshotIndexValue()
	assert.False(t, ok)

	b.SetRecordingSampling(SamplingAll)
	v, ok = b.SnapshotIndexValue()
	require.True(t, ok)
	assert.Equal(t, "3.55", v)
}

func TestBrowser_SingleSnapshotIndexValue(t *testing.T) {
	b := newBrowser(newScene())
	v, ok := b.SnapshotIndexValue()
	require.True(t, ok)
	assert.Equal(t, "0.1", v, "empty browser starts one frame after zero")

	b.SetMaster(newSeq(t, "m", "0", "2"))
	v, _ = b.SnapshotIndexValue()
	assert.Equal(t, "2.1", v)

	b.SetPlaybackRateFps(0)
	v, _ = b.SnapshotIndexValue()
	assert.Equal(t, "3", v, "unset rate counts as 1 fps")
}

func TestBrowser_PropertiesSetters(t *testing.T) {
	b := newBrowser(newScene())
	a := newSeq(t, "a", "0")
	c := newSeq(t, "c", "0")
	b.SetMaster(a)
	_, _ = b.AddSynchronized(c)

	b.SetSaveChanges(c, true)
	b.SetMissingItemMode(c, SetToDefault)
	pa, _ := b.Properties(a)
	pc, _ := b.Properties(c)
	assert.Equal(t, DefaultSyncProperties(), pa)
	assert.Equal(t, SyncProperties{Playback: true, SaveChanges: true, MissingItem: SetToDefault}, pc)

	b.SetRecordingEnabled(nil, true)
	pa, _ = b.Properties(a)
	pc, _ = b.Properties(c)
	assert.True(t, pa.Recording)
	assert.True(t, pc.Recording)

	_, ok := b.Properties(newSeq(t, "stranger"))
	assert.False(t, ok)
}

func TestBrowser_ProxyLifecycle(t *testing.T) {
	sc := newScene()
	b := newBrowser(sc)
	m := newSeq(t, "m", "0")
	b.SetMaster(m)

	first := node.NewText()
	first.SetName("Live")
	_, err := b.SetProxy(m, first, Borrowed)
	require.NoError(t, err)

	assert.Same(t, first, b.Proxy(m))
	assert.True(t, b.IsProxy(first.ID()))
	assert.Same(t, m, b.SequenceForProxy(first))
	assert.Equal(t, "Live", first.Attribute(sequence.AttrBaseName))
	ref, ok := b.ProxyRef(m)
	require.True(t, ok)
	assert.Equal(t, ProxyRef{NodeID: first.ID(), Ownership: Borrowed}, ref)

	copyProxy, err := b.AddProxyCopy(m, first)
	require.NoError(t, err)
	assert.Equal(t, "m", copyProxy.Name())
	assert.Equal(t, node.ClassText, copyProxy.Class())
	assert.False(t, b.IsProxy(first.ID()))
	_, ok = sc.Node(first.ID())
	assert.True(t, ok, "replaced borrowed proxy stays in the scene")

	third := node.NewText()
	_, err = b.SetProxy(m, third, Borrowed)
	require.NoError(t, err)
	_, ok = sc.Node(copyProxy.ID())
	assert.False(t, ok, "replaced owned proxy is removed")
	assert.Equal(t, []node.Node{third}, b.Proxies())
}

func TestBrowser_RemoveAllProxies(t *testing.T) {
	sc := newScene()
	b := newBrowser(sc)
	m := newSeq(t, "m", "0")
	s := newSeq(t, "s", "0")
	b.SetMaster(m)
	borrowed := node.NewText()
	_, err := b.SetProxy(m, borrowed, Borrowed)
	require.NoError(t, err)
	owned, err := b.AddProxyCopy(s, node.NewText())
	require.NoError(t, err)

	b.RemoveAllProxies()

	assert.Empty(t, b.Proxies())
	assert.Equal(t, 2, b.Len(), "entries stay attached")
	_, ok := sc.Node(borrowed.ID())
	assert.True(t, ok, "borrowed proxy stays in the scene")
	_, ok = sc.Node(owned.ID())
	assert.False(t, ok, "owned proxy is removed")
}

func TestBrowser_ProxyRemovedFromSceneIsMissing(t *testing.T) {
	sc := newScene()
	b := newBrowser(sc)
	m := newSeq(t, "m", "0")
	b.SetMaster(m)
	p := node.NewText()
	_, err := b.SetProxy(m, p, Borrowed)
	require.NoError(t, err)

	sc.RemoveNode(p.ID())

	assert.Nil(t, b.Proxy(m))
	assert.Nil(t, b.SequenceForProxy(p))
}

func TestBrowser_SetProxyAttachesSequence(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "m", "0"))
	s := newSeq(t, "s")

	_, err := b.SetProxy(s, node.NewScalar(), Borrowed)
	require.NoError(t, err)
	assert.True(t, b.IsSynchronized(s))

	bad := newSeq(t, "bad")
	bad.SetIndexUnit("ms")
	_, err = b.SetProxy(bad, node.NewScalar(), Borrowed)
	assert.ErrorIs(t, err, ErrIncompatible)

	_, err = b.SetProxy(s, nil, Borrowed)
	assert.ErrorIs(t, err, ErrNilProxy)
}

func TestBrowser_ProxyContentChangedNotification(t *testing.T) {
	b := newBrowser(newScene())
	m := newSeq(t, "m", "0")
	b.SetMaster(m)
	p := node.NewText()
	_, err := b.SetProxy(m, p, Borrowed)
	require.NoError(t, err)

	var got []Notification
	id := b.AddListener(func(n Notification) {
		if n.Event == EventProxyContentChanged {
			got = append(got, n)
		}
	})
	p.Text = "edited"
	p.Modified()

	require.Len(t, got, 1)
	assert.Same(t, p, got[0].Proxy)
	assert.Same(t, b, got[0].Browser)

	b.RemoveListener(id)
	p.Modified()
	assert.Len(t, got, 1)
}

func TestBrowser_ModifyBracketCoalesces(t *testing.T) {
	b := newBrowser(newScene())
	b.SetMaster(newSeq(t, "m", "0", "1", "2"))

	var events []Event
	b.AddListener(func(n Notification) { events = append(events, n.Event) })

	was := b.StartModify()
	b.SetSelectedItemNumber(1)
	b.SetSelectedItemNumber(2)
	b.SetPlaybackLooped(false)
	b.SetIndexDisplayFormat("%.1f")
	assert.Empty(t, events)
	b.EndModify(was)

	assert.Equal(t, []Event{EventMasterAdvanced, EventModified, EventIndexFormatChanged}, events)
}
