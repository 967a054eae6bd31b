package pager

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slideKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("chapter-%d", i+1)
	}
	return keys
}

// fixedViewport always yields limit, whatever the width.
func fixedViewport(limit int) Viewport {
	return Viewport{DefaultClass: "fixed", DefaultLimit: limit}
}

func newController(t *testing.T, n, limit, width int) (*Controller, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	c, err := New(slideKeys(n), width, fixedViewport(limit), rec)
	require.NoError(t, err)
	return c, rec
}

func TestNewRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		keys  []string
		width int
		vp    Viewport
		want  error
	}{
		{"no slides", nil, 40, DefaultViewport(), ErrNoSlides},
		{"zero width", slideKeys(3), 0, DefaultViewport(), ErrInvalidItemWidth},
		{"negative width", slideKeys(3), -10, DefaultViewport(), ErrInvalidItemWidth},
		{"duplicate key", []string{"a", "b", "a"}, 40, DefaultViewport(), ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.keys, tt.width, tt.vp, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := New(slideKeys(3), 40, Viewport{DefaultLimit: 0}, nil)
	assert.Error(t, err, "a zero default limit should be rejected")
}

func TestOperationsBeforeInit(t *testing.T) {
	c, rec := newController(t, 5, 3, 40)

	assert.ErrorIs(t, c.SelectSlide(1), ErrNotInitialized)
	assert.ErrorIs(t, c.SelectByKey("chapter-1"), ErrNotInitialized)
	assert.ErrorIs(t, c.Step(EdgeNext), ErrNotInitialized)
	assert.ErrorIs(t, c.Resize(1024), ErrNotInitialized)
	assert.False(t, c.Initialized())
	assert.Empty(t, rec.Commands())
}

func TestInitEmitsInitialCommands(t *testing.T) {
	c, rec := newController(t, 7, 5, 40)

	c.Init(1024, "chapter-5")

	assert.Equal(t, []Command{
		{Op: OpActivateSlide, Index: 4},
		{Op: OpSetStripOffset, Offset: -80},
		{Op: OpSetEdgeEnabled, Edge: EdgePrevious, Enabled: true},
		{Op: OpSetEdgeEnabled, Edge: EdgeNext, Enabled: false},
	}, rec.Flush())
	assert.Equal(t, 4, c.State().SelectedIndex)
}

func TestInitFallsBackToFirstSlide(t *testing.T) {
	for _, key := range []string{"", "#undefined", "missing"} {
		t.Run(fmt.Sprintf("key=%q", key), func(t *testing.T) {
			c, rec := newController(t, 7, 5, 40)
			err := c.Init(1024, key)
			if key == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnknownKey)
				assert.ErrorContains(t, err, key)
			}

			st := c.State()
			assert.Equal(t, 0, st.SelectedIndex)
			assert.Equal(t, 0, st.StripOffset)
			assert.False(t, st.PrevEnabled)
			assert.True(t, st.NextEnabled)
			assert.Equal(t, Command{Op: OpActivateSlide, Index: 0}, rec.Commands()[0])
		})
	}
}

func TestInitSelectsKeyForEverySize(t *testing.T) {
	for n := 1; n <= 12; n++ {
		keys := slideKeys(n)
		for i, key := range keys {
			c, err := New(keys, 30, DefaultViewport(), nil)
			require.NoError(t, err)
			require.NoError(t, c.Init(800, key))
			assert.Equal(t, i, c.State().SelectedIndex, "n=%d key=%s", n, key)
		}
	}
}

func TestSevenSlidesFiveVisible(t *testing.T) {
	c, rec := newController(t, 7, 5, 40)
	c.Init(1024, "")
	rec.Flush()

	require.NoError(t, c.SelectSlide(0))
	st := c.State()
	assert.Equal(t, 0, st.StripOffset)
	assert.False(t, st.PrevEnabled)
	assert.True(t, st.NextEnabled)

	require.NoError(t, c.SelectSlide(4))
	st = c.State()
	assert.Equal(t, -80, st.StripOffset, "index 4 is centered with a margin of 2")
	assert.True(t, st.PrevEnabled)
	// -80 is also the right bound for 7 items through a window of 5.
	assert.False(t, st.NextEnabled)

	require.NoError(t, c.SelectSlide(6))
	st = c.State()
	assert.Equal(t, -80, st.StripOffset)
	assert.True(t, st.PrevEnabled)
	assert.False(t, st.NextEnabled)

	require.NoError(t, c.SelectSlide(3))
	st = c.State()
	assert.Equal(t, -40, st.StripOffset)
	assert.True(t, st.PrevEnabled)
	assert.True(t, st.NextEnabled)
}

func TestSelectSlideCommandOrder(t *testing.T) {
	c, rec := newController(t, 7, 5, 40)
	c.Init(1024, "")
	rec.Flush()

	require.NoError(t, c.SelectSlide(3))

	assert.Equal(t, []Command{
		{Op: OpDeactivateSlide, Index: 0},
		{Op: OpActivateSlide, Index: 3},
		{Op: OpSetStripOffset, Offset: -40},
		{Op: OpSetEdgeEnabled, Edge: EdgePrevious, Enabled: true},
		{Op: OpSetEdgeEnabled, Edge: EdgeNext, Enabled: true},
		{Op: OpSetFragment, Key: "chapter-4"},
		{Op: OpScrollToSlide, Index: 3},
	}, rec.Flush())
}

func TestFewerSlidesThanWindow(t *testing.T) {
	c, _ := newController(t, 4, 5, 40)
	c.Init(1024, "")

	for i := 0; i < 4; i++ {
		require.NoError(t, c.SelectSlide(i))
		st := c.State()
		assert.Equal(t, 0, st.StripOffset)
		assert.False(t, st.PrevEnabled)
		assert.False(t, st.NextEnabled)
		assert.Equal(t, 4, st.DisplayLimit)
	}

	require.NoError(t, c.Step(EdgeNext))
	require.NoError(t, c.Step(EdgePrevious))
	assert.Equal(t, 0, c.State().StripOffset)
}

func TestSelectSlideIsIdempotent(t *testing.T) {
	for n := 1; n <= 10; n++ {
		for limit := 1; limit <= 6; limit++ {
			c, _ := newController(t, n, limit, 25)
			c.Init(0, "")
			for i := 0; i < n; i++ {
				require.NoError(t, c.SelectSlide(i))
				first := c.State()
				require.NoError(t, c.SelectSlide(i))
				assert.Equal(t, first, c.State(), "n=%d limit=%d i=%d", n, limit, i)
			}
		}
	}
}

func TestSecondSelectDoesNotDeactivate(t *testing.T) {
	c, rec := newController(t, 5, 3, 40)
	c.Init(0, "")
	require.NoError(t, c.SelectSlide(2))
	rec.Flush()

	require.NoError(t, c.SelectSlide(2))
	for _, cmd := range rec.Flush() {
		assert.NotEqual(t, OpDeactivateSlide, cmd.Op)
	}
}

func TestSelectSlideOutOfRange(t *testing.T) {
	c, rec := newController(t, 5, 3, 40)
	c.Init(0, "chapter-3")
	before := c.State()
	rec.Flush()

	for _, idx := range []int{-1, 5, 100} {
		err := c.SelectSlide(idx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}
	assert.Equal(t, before, c.State())
	assert.Empty(t, rec.Commands())
}

func TestSelectByKey(t *testing.T) {
	c, rec := newController(t, 7, 5, 40)
	c.Init(1024, "")
	rec.Flush()

	require.NoError(t, c.SelectByKey("chapter-7"))
	assert.Equal(t, 6, c.State().SelectedIndex)
	assert.Equal(t, -80, c.State().StripOffset)

	before := c.State()
	rec.Flush()
	err := c.SelectByKey("epilogue")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, before, c.State())
	assert.Empty(t, rec.Commands())
}

func TestStepPansWithoutChangingSelection(t *testing.T) {
	c, rec := newController(t, 7, 5, 40)
	c.Init(1024, "")
	rec.Flush()

	require.NoError(t, c.Step(EdgePrevious))
	assert.Empty(t, rec.Flush(), "previous at offset 0 is a no-op")

	require.NoError(t, c.Step(EdgeNext))
	assert.Equal(t, []Command{
		{Op: OpSetStripOffset, Offset: -40},
		{Op: OpSetEdgeEnabled, Edge: EdgePrevious, Enabled: true},
		{Op: OpSetEdgeEnabled, Edge: EdgeNext, Enabled: true},
	}, rec.Flush())

	require.NoError(t, c.Step(EdgeNext))
	st := c.State()
	assert.Equal(t, -80, st.StripOffset)
	assert.False(t, st.NextEnabled)

	require.NoError(t, c.Step(EdgeNext))
	assert.Equal(t, -80, c.State().StripOffset, "next at the right bound is a no-op")

	require.NoError(t, c.Step(EdgePrevious))
	require.NoError(t, c.Step(EdgePrevious))
	st = c.State()
	assert.Equal(t, 0, st.StripOffset)
	assert.False(t, st.PrevEnabled)
	assert.True(t, st.NextEnabled)
	assert.Equal(t, 0, st.SelectedIndex)
}

func TestStepUnknownEdge(t *testing.T) {
	c, _ := newController(t, 7, 5, 40)
	c.Init(1024, "")
	before := c.State()

	assert.Error(t, c.Step(Edge("sideways")))
	assert.Equal(t, before, c.State())
}

func TestOffsetStaysInBounds(t *testing.T) {
	const w = 17
	for n := 1; n <= 12; n++ {
		for limit := 1; limit <= 8; limit++ {
			c, _ := newController(t, n, limit, w)
			c.Init(0, "")
			eff := c.State().DisplayLimit
			lo := -(max(n-eff, 0) * w)

			check := func(step string) {
				st := c.State()
				require.GreaterOrEqual(t, st.StripOffset, lo, "n=%d limit=%d after %s", n, limit, step)
				require.LessOrEqual(t, st.StripOffset, 0, "n=%d limit=%d after %s", n, limit, step)
				require.Zero(t, st.StripOffset%w)
				require.Equal(t, st.StripOffset != 0, st.PrevEnabled)
				require.Equal(t, st.StripOffset != lo, st.NextEnabled)
			}

			for i := 0; i < n; i++ {
				require.NoError(t, c.SelectSlide(i))
				check(fmt.Sprintf("select %d", i))

				// The selected indicator must sit inside the window.
				first := -c.State().StripOffset / w
				assert.GreaterOrEqual(t, i, first, "n=%d limit=%d i=%d", n, limit, i)
				assert.Less(t, i, first+eff, "n=%d limit=%d i=%d", n, limit, i)

				for s := 0; s < n+1; s++ {
					require.NoError(t, c.Step(EdgeNext))
					check("next")
				}
				for s := 0; s < n+1; s++ {
					require.NoError(t, c.Step(EdgePrevious))
					check("previous")
				}
			}
		}
	}
}

func TestResizeRecomputesAroundSelection(t *testing.T) {
	rec := &Recorder{}
	c, err := New(slideKeys(7), 40, DefaultViewport(), rec)
	require.NoError(t, err)

	c.Init(1024, "chapter-4")
	st := c.State()
	require.Equal(t, 5, st.DisplayLimit)
	require.Equal(t, "default", st.Class)
	require.Equal(t, -40, st.StripOffset)
	rec.Flush()

	require.NoError(t, c.Resize(400))
	st = c.State()
	assert.Equal(t, 3, st.SelectedIndex)
	assert.Equal(t, 3, st.DisplayLimit)
	assert.Equal(t, "sm", st.Class)
	assert.Equal(t, -80, st.StripOffset, "margin 1 under a window of 3")
	assert.True(t, st.PrevEnabled)
	assert.True(t, st.NextEnabled)
	assert.Equal(t, []Command{
		{Op: OpSetStripOffset, Offset: -80},
		{Op: OpSetEdgeEnabled, Edge: EdgePrevious, Enabled: true},
		{Op: OpSetEdgeEnabled, Edge: EdgeNext, Enabled: true},
	}, rec.Flush())
}

func TestResizeWithSameLimitKeepsPan(t *testing.T) {
	c, err := New(slideKeys(9), 40, DefaultViewport(), nil)
	require.NoError(t, err)
	c.Init(1200, "")
	require.NoError(t, c.Step(EdgeNext))
	require.NoError(t, c.Step(EdgeNext))
	panned := c.State().StripOffset
	require.Equal(t, -80, panned)

	require.NoError(t, c.Resize(1000))
	assert.Equal(t, panned, c.State().StripOffset)

	require.NoError(t, c.Resize(300))
	st := c.State()
	assert.Equal(t, "xs", st.Class)
	assert.Equal(t, 1, st.DisplayLimit)
	assert.Equal(t, 0, st.StripOffset)
	assert.Equal(t, 0, st.SelectedIndex)
}

func TestRapidStepsStayConsistent(t *testing.T) {
	c, _ := newController(t, 20, 5, 10)
	c.Init(0, "chapter-10")

	edges := []Edge{EdgeNext, EdgeNext, EdgePrevious, EdgeNext, EdgeNext, EdgeNext, EdgeNext,
		EdgeNext, EdgeNext, EdgeNext, EdgeNext, EdgeNext, EdgeNext, EdgePrevious}
	expected := c.State().StripOffset
	for _, e := range edges {
		st := c.State()
		if e == EdgeNext && st.NextEnabled {
			expected -= 10
		}
		if e == EdgePrevious && st.PrevEnabled {
			expected += 10
		}
		require.NoError(t, c.Step(e))
		require.Equal(t, expected, c.State().StripOffset)
	}
	assert.Equal(t, 9, c.State().SelectedIndex)
}

func TestAccessors(t *testing.T) {
	c, _ := newController(t, 3, 3, 12)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "chapter-2", c.Key(1))
	assert.Equal(t, 12, c.ItemWidth())

	idx, err := c.IndexOf("chapter-3")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = c.IndexOf("chapter-9")
	assert.ErrorIs(t, err, ErrUnknownKey)
}
