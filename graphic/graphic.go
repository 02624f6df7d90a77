// Package graphic draws a terminal spectrum preview for running without
// a GPU surface.
package graphic

import (
	"context"

	"github.com/nsf/termbox-go"

	"github.com/seliv/shaderviz/dsp"
)

const (
	// BarRune is the full block used for bar bodies.
	BarRune = '█'

	// NumRunes is the number of sub-step runes per cell.
	NumRunes = 8
)

// barRunes maps the fractional top cell of a bar to a partial block.
var barRunes = [NumRunes]rune{
	' ',
	'▁',
	'▂',
	'▃',
	'▄',
	'▅',
	'▆',
	'▇',
}

// Event is a key press the preview surfaces to its owner.
type Event int

// Preview events.
const (
	EventNone Event = iota
	EventQuit
	EventNext
	EventPrev
	EventRandom
)

// barColumns folds the spectrum bytes into bars normalized heights in
// [0, 1]. Adjacent bands average into each bar.
func barColumns(spectrum []byte, bars int) []float64 {
	if bars <= 0 || len(spectrum) == 0 {
		return nil
	}
	if bars > len(spectrum) {
		bars = len(spectrum)
	}

	out := make([]float64, bars)
	per := len(spectrum) / bars
	for i := range out {
		sum := 0
		for _, b := range spectrum[i*per : (i+1)*per] {
			sum += int(b)
		}
		out[i] = float64(sum) / float64(per) / 255.0
	}
	return out
}

// stopAndTop splits a bar height in rows into the first full row and
// the partial rune above it.
func stopAndTop(height float64, rows int) (stop int, top rune) {
	cells := height * float64(rows)
	full := int(cells)
	if full >= rows {
		return 0, barRunes[0]
	}

	frac := int((cells - float64(full)) * NumRunes)
	return rows - full, barRunes[frac]
}

// Preview owns the termbox screen.
type Preview struct{}

// Init sets up the terminal. Close must be called on the same
// goroutine.
func (p *Preview) Init() error {
	if err := termbox.Init(); err != nil {
		return err
	}
	termbox.SetInputMode(termbox.InputEsc)
	return nil
}

// Close restores the terminal.
func (p *Preview) Close() {
	termbox.Close()
}

// Draw renders the spectrum half of an analysis frame.
func (p *Preview) Draw(frame []byte) error {
	if len(frame) < dsp.BandCount {
		return nil
	}

	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return err
	}

	width, height := termbox.Size()
	cols := barColumns(frame[:dsp.BandCount], width)

	for x, h := range cols {
		stop, top := stopAndTop(h, height)

		for y := height - 1; y >= stop; y-- {
			termbox.SetCell(x, y, BarRune, termbox.ColorWhite, termbox.ColorDefault)
		}
		if stop > 0 && top != barRunes[0] {
			termbox.SetCell(x, stop-1, top, termbox.ColorWhite, termbox.ColorDefault)
		}
	}

	return termbox.Flush()
}

// PollEvents translates key presses until ctx is canceled. The caller
// receives on the returned channel from its render loop.
func (p *Preview) PollEvents(ctx context.Context) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)
		for {
			ev := termbox.PollEvent()
			if ev.Type != termbox.EventKey {
				continue
			}

			mapped := EventNone
			switch {
			case ev.Key == termbox.KeyEsc || ev.Ch == 'q':
				mapped = EventQuit
			case ev.Ch == 'n':
				mapped = EventNext
			case ev.Ch == 'p':
				mapped = EventPrev
			case ev.Ch == 'r':
				mapped = EventRandom
			}
			if mapped == EventNone {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- mapped:
				if mapped == EventQuit {
					return
				}
			}
		}
	}()

	return out
}
