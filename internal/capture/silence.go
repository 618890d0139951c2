package capture

import (
	"math"
	"time"
)

type Decision int

const (
	Continue Decision = iota
	StopCapture
)

func (d Decision) String() string {
	if d == StopCapture {
		return "stop"
	}
	return "continue"
}

// maxSampleMagnitude normalizes 16-bit sample levels to [0,1].
const maxSampleMagnitude = 32768.0

// SilenceGate counts consecutive quiet frames. It looks at one frame at a
// time: there is no smoothing, so a single loud frame resets the count.
type SilenceGate struct {
	threshold float64
	required  int
	silent    int
	lastLevel float64
}

func NewSilenceGate(threshold float64, silence time.Duration, sampleRate, frameSize int) *SilenceGate {
	return &SilenceGate{
		threshold: threshold,
		required:  RequiredSilentFrames(silence, sampleRate, frameSize),
	}
}

// RequiredSilentFrames is ceil(silence * sampleRate / frameSize), at least one.
func RequiredSilentFrames(silence time.Duration, sampleRate, frameSize int) int {
	if frameSize <= 0 || sampleRate <= 0 {
		return 1
	}
	n := int(math.Ceil(silence.Seconds() * float64(sampleRate) / float64(frameSize)))
	if n < 1 {
		n = 1
	}
	return n
}

func (g *SilenceGate) Observe(frame []int16) Decision {
	g.lastLevel = Level(frame)
	if g.lastLevel < g.threshold {
		g.silent++
	} else {
		g.silent = 0
	}
	if g.silent >= g.required {
		return StopCapture
	}
	return Continue
}

func (g *SilenceGate) Reset() {
	g.silent = 0
	g.lastLevel = 0
}

func (g *SilenceGate) Silent() int        { return g.silent }
func (g *SilenceGate) Required() int      { return g.required }
func (g *SilenceGate) LastLevel() float64 { return g.lastLevel }

// Level returns the RMS amplitude of frame normalized to [0,1].
func Level(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum/float64(len(frame))) / maxSampleMagnitude
}
