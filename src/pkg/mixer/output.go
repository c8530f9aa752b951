package mixer

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output is where the mixed stream ends up. Lock and Unlock guard every
// change to streamers the output may be pulling from.
type Output interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

var (
	speakerInit  = speaker.Init
	speakerClose = speaker.Close
)

// Speaker plays through the system audio device. Close stops the player
// and releases the device; beep keeps its driver context, so a Speaker
// cannot be initialised again in the same process.
type Speaker struct{}

func (Speaker) Init(rate beep.SampleRate, bufferSize int) error {
	return speakerInit(rate, bufferSize)
}

func (Speaker) Play(s beep.Streamer) { speaker.Play(s) }
func (Speaker) Lock()                { speaker.Lock() }
func (Speaker) Unlock()              { speaker.Unlock() }
func (Speaker) Close()               { speakerClose() }

// ManualOutput never touches an audio device. Samples are produced only
// when Pull is called, which suits tests and machines without sound.
type ManualOutput struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	streams []beep.Streamer
}

func (o *ManualOutput) Init(rate beep.SampleRate, bufferSize int) error {
	o.rate = rate
	return nil
}

func (o *ManualOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.streams = append(o.streams, s)
	o.mu.Unlock()
}

func (o *ManualOutput) Lock()   { o.mu.Lock() }
func (o *ManualOutput) Unlock() { o.mu.Unlock() }

func (o *ManualOutput) Close() {
	o.mu.Lock()
	o.streams = nil
	o.mu.Unlock()
}

// Pull streams n frames from everything played so far, mixed.
func (o *ManualOutput) Pull(n int) [][2]float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][2]float64, n)
	tmp := make([][2]float64, n)
	for _, s := range o.streams {
		got, _ := s.Stream(tmp)
		for i := 0; i < got; i++ {
			out[i][0] += tmp[i][0]
			out[i][1] += tmp[i][1]
		}
	}
	return out
}
