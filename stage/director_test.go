package stage

import (
	"fmt"
	"image/png"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ellipse"
	"github.com/teranos/ellipse/plot"
	"github.com/teranos/ellipse/trip"
)

// mockScene is a value type so the program goroutine and the test never share
// mutable state.
type mockScene struct {
	input   string
	mode    string
	count   int
	width   int
	panicOn string
	closed  *int32
}

func (m mockScene) Init() tea.Cmd { return nil }

func (m mockScene) View() string {
	return fmt.Sprintf("Mock scene: %s | count=%d | width=%d", m.input, m.count, m.width)
}

func (m mockScene) CurrentInput() string { return m.input }
func (m mockScene) CurrentMode() string  { return m.mode }

func (m mockScene) CheckCondition(condition string) bool {
	switch condition {
	case "positive":
		return m.count > 0
	default:
		return false
	}
}

func (m mockScene) Frame() plot.Frame {
	data := ellipse.NewModel().WithResolution(200).Render()
	return plot.NewFrame(data, "mock")
}

func (m mockScene) Close() error {
	if m.closed != nil {
		atomic.AddInt32(m.closed, 1)
	}
	return nil
}

func (m mockScene) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyRunes:
			if m.panicOn != "" && string(msg.Runes) == m.panicOn {
				panic("mock scene refused " + m.panicOn)
			}
			m.input += string(msg.Runes)
		case tea.KeyEnter:
			m.mode = "executed"
		case tea.KeyEsc:
			m.mode = "escaped"
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeyRight:
			m.count++
		case tea.KeyLeft:
			m.count--
		}
	}
	return m, nil
}

// quietT collects errors instead of failing the test, for sessions that are
// supposed to fail.
type quietT struct {
	testing.TB
	mu     sync.Mutex
	errors []string
}

func (q *quietT) Error(args ...any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errors = append(q.errors, fmt.Sprint(args...))
}

func (q *quietT) Errors() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.errors...)
}

func testConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		TypingSpeed:  0,
		CaptureViews: true,
	}
}

func TestDirector_BasicInteractions(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{mode: "initial"}, testConfig()).Start()

	director.Type("hello").AssertInputEquals("hello")
	director.PressEnter().AssertMode("executed")
	director.PressBackspace().AssertInputEquals("hell")
	director.PressEscape().AssertMode("escaped")

	result := director.Stop()
	require.True(t, result.Success, result.ErrorMessage)
	assert.Empty(t, result.ErrorMessage)
	assert.Nil(t, result.Error)

	var types []string
	for _, action := range result.Actions {
		types = append(types, action.Type)
	}
	assert.Contains(t, types, "type")
	assert.Contains(t, types, "keypress")
	assert.Contains(t, types, "assertion")
	assert.NotEmpty(t, result.Snapshots)
	assert.Equal(t, "escaped", result.Snapshots[len(result.Snapshots)-1].Mode)
}

func TestDirector_StartDeliversWindowSize(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{}, testConfig()).Start()
	defer director.Stop()

	director.AssertViewContains("width=80")
	assert.False(t, director.HasFailed())
}

func TestDirector_WaitForCondition(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{}, testConfig()).Start()

	director.
		PressRight().
		PressRight().
		PressLeft().
		PressRight().
		WaitForCondition("positive").
		WaitForText("count=2").
		AssertCondition("positive")

	result := director.Stop()
	assert.True(t, result.Success, result.ErrorMessage)
}

func TestDirector_FailedAssertionIsReported(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{}, testConfig()).Start()

	director.AssertViewContains("no such text")
	assert.True(t, director.HasFailed())
	require.Error(t, director.Err())
	assert.True(t, trip.Is(director.Err(), trip.Assertion))

	result := director.Stop()
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "[assertion]")
	assert.Contains(t, result.ErrorDetails, "expected: no such text")
	assert.Contains(t, result.TripReport, "stage_director")
}

func TestDirector_WaitTimesOut(t *testing.T) {
	config := testConfig()
	config.Timeout = 500 * time.Millisecond
	director := NewDirectorWithConfig(t, mockScene{}, config).Start()

	start := time.Now()
	director.WaitForMode("never")
	assert.Less(t, time.Since(start), 2*time.Second)

	result := director.Stop()
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "timeout waiting for mode never")
}

func TestDirector_ConditionFailure(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{}, testConfig()).Start()

	director.AssertCondition("positive")

	result := director.Stop()
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "condition not met: positive")
}

func TestDirector_ScenePanicIsAFall(t *testing.T) {
	qt := &quietT{TB: t}
	director := NewDirectorWithConfig(qt, mockScene{panicOn: "!"}, testConfig()).Start()

	director.Type("ok!")

	result := director.Stop()
	assert.False(t, result.Success)
	require.Error(t, result.Error)
	assert.True(t, trip.Is(result.Error, trip.System))
	assert.Contains(t, result.ErrorMessage, "scene panic")

	errors := qt.Errors()
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "mock scene refused !")

	var sawErrorSnapshot bool
	for _, snapshot := range result.Snapshots {
		if snapshot.Mode == "error_model_panic" {
			sawErrorSnapshot = true
			assert.Contains(t, snapshot.View, "ERROR STATE")
			assert.Contains(t, snapshot.View, "Mock scene: ok")
		}
	}
	assert.True(t, sawErrorSnapshot)
}

func TestDirector_ClosesScene(t *testing.T) {
	var closed int32
	director := NewDirectorWithConfig(t, mockScene{closed: &closed}, testConfig()).Start()

	result := director.Stop()
	assert.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))
}

func TestDirector_SynchronizationStats(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{}, testConfig()).Start()
	defer director.Stop()

	director.PressRight().PressRight().PressRight()

	stats := director.SynchronizationStats()
	assert.GreaterOrEqual(t, stats["updates_generated"], int64(4)) // window size + three keys
	assert.Equal(t, stats["updates_generated"], stats["updates_processed"])
	assert.Zero(t, stats["updates_dropped"])
	assert.Equal(t, int64(50), stats["buffer_capacity"])
	assert.False(t, director.HasDroppedUpdates())
}

func TestDirector_ViewCaptureDisabled(t *testing.T) {
	director := NewDirectorWithConfig(t, mockScene{}, testConfig()).
		WithViewCapture(false).
		Start()

	director.Type("abc")

	result := director.Stop()
	assert.True(t, result.Success)
	assert.Empty(t, result.Snapshots)
	assert.Equal(t, 3, len(result.Actions))
}

func TestKeyMsg(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"left", "left"},
		{"shift+right", "shift+right"},
		{"enter", "enter"},
		{"esc", "esc"},
		{"ctrl+c", "ctrl+c"},
		{"q", "q"},
		{"L", "L"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyMsg(tt.key).String())
		})
	}
}

func TestOperator_CaptureTrackingShot(t *testing.T) {
	dir := t.TempDir()
	op := NewOperator(t, mockScene{}, dir).Start()

	op.CaptureTrackingShot("initial").
		PressWithTrackingShot("right", "moved")

	result := op.Stop()
	require.True(t, result.Success, result.ErrorMessage)

	shots := op.Shots()
	require.Len(t, shots, 2)
	assert.True(t, strings.HasSuffix(shots[0].Path, "_000_initial.png"), shots[0].Path)
	assert.True(t, strings.HasSuffix(shots[1].Path, "_001_moved.png"), shots[1].Path)
	assert.Equal(t, "moved", shots[1].Label)
	assert.Equal(t, 1, shots[1].Step)

	file, err := os.Open(shots[0].Path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
	assert.Equal(t, 560, img.Bounds().Dy())
}

func TestOperator_UnwritableDirectoryStumbles(t *testing.T) {
	blocker := t.TempDir() + "/file"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	op := NewOperator(t, mockScene{}, blocker+"/shots").Start()
	op.CaptureTrackingShot("nowhere")

	assert.Empty(t, op.Shots())
	assert.True(t, op.TripHandler().HasStumbles())
	assert.False(t, op.HasFailed())

	result := op.Stop()
	assert.True(t, trip.Is(result.Error, trip.Render))
}
