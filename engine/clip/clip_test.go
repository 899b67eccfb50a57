package clip

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translated(x float32) common.Transform {
	t := common.IdentityTransform()
	t.Translation = mgl32.Vec3{x, 0, 0}
	return t
}

func TestNewClip(t *testing.T) {
	c, err := NewClip("walk",
		WithFrameRate(10),
		WithLooping(true),
		WithTargets("hip", "knee"),
		WithFrames(
			Frame{translated(0), translated(10)},
			Frame{translated(1), translated(11)},
		),
		AppendFrame(Frame{translated(2), translated(12)}),
	)
	require.NoError(t, err)

	assert.Equal(t, "walk", c.Name())
	assert.Equal(t, 10, c.FrameRate())
	assert.True(t, c.Looping())
	assert.Equal(t, []string{"hip", "knee"}, c.Targets())
	assert.Equal(t, "knee", c.Target(1))
	assert.Equal(t, 2, c.TargetCount())
	assert.Equal(t, 3, c.FrameCount())
	assert.Equal(t, translated(12), c.Transform(2, 1))
	assert.InDelta(t, 0.3, c.Duration(), 1e-6)
}

func TestNewClipValidation(t *testing.T) {
	tests := []struct {
		name    string
		options []ClipBuilderOption
		wantErr error
	}{
		{
			name:    "zero frame rate",
			options: []ClipBuilderOption{WithTargets("a"), WithFrames(Frame{translated(0)})},
			wantErr: ErrFrameRate,
		},
		{
			name:    "negative frame rate",
			options: []ClipBuilderOption{WithFrameRate(-5), WithTargets("a"), WithFrames(Frame{translated(0)})},
			wantErr: ErrFrameRate,
		},
		{
			name:    "no frames",
			options: []ClipBuilderOption{WithFrameRate(30), WithTargets("a")},
			wantErr: ErrNoFrames,
		},
		{
			name: "short frame",
			options: []ClipBuilderOption{
				WithFrameRate(30),
				WithTargets("a", "b"),
				WithFrames(Frame{translated(0), translated(1)}, Frame{translated(0)}),
			},
			wantErr: ErrFrameSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClip("bad", tt.options...)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClipOwnsItsData(t *testing.T) {
	targets := []string{"a"}
	frame := Frame{translated(1)}

	c, err := NewClip("copy", WithFrameRate(1), WithTargets(targets...), WithFrames(frame))
	require.NoError(t, err)

	targets[0] = "changed"
	frame[0] = translated(99)
	c.Targets()[0] = "also changed"

	assert.Equal(t, "a", c.Target(0))
	assert.Equal(t, translated(1), c.Transform(0, 0))
}
