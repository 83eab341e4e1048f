package plot

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ellipse"
)

func TestSupervisor_Consistency(t *testing.T) {
	dir := t.TempDir()
	baselineDir := filepath.Join(dir, "baseline")
	currentDir := filepath.Join(dir, "current")

	config := DefaultConfig()
	config.OutputDir = currentDir
	stage := NewStage(config)

	path, err := stage.CaptureFrame(defaultFrame("fixed"), "default.png")
	require.NoError(t, err)

	supervisor := NewSupervisor(baselineDir, currentDir).WithTolerance(0.0001)
	require.NoError(t, supervisor.SetBaseline("default", path))
	assert.NoError(t, supervisor.ValidateConsistency("default"))

	// Rotate a quarter turn and write over the current snapshot
	m := ellipse.NewModel().WithResolution(20000)
	data, err := m.SetRotationDegrees(90)
	require.NoError(t, err)
	_, err = stage.CaptureFrame(NewFrame(data, "fixed"), "default.png")
	require.NoError(t, err)

	err = supervisor.ValidateConsistency("default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "visual regression detected")
	assert.FileExists(t, filepath.Join(currentDir, "default_diff.png"))
}

func TestSupervisor_MissingBaseline(t *testing.T) {
	supervisor := NewSupervisor(t.TempDir(), t.TempDir())

	err := supervisor.ValidateConsistency("nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load baseline")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDifference(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.Equal(t, 0.0, Difference(a, b))

	b.Pix[0] = 255
	assert.Equal(t, 1.0/16, Difference(a, b))

	c := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Equal(t, 1.0, Difference(a, c))
}
