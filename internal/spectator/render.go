// Package spectator draws snapshots in a terminal.
package spectator

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/gdamore/tcell/v2"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

var (
	styleEmpty   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleOwn     = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleShip    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleBullet  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleUpgrade = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleText    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

const (
	glyphEmpty   = '.'
	glyphOwn     = '@'
	glyphBullet  = '*'
	glyphUpgrade = '+'
	// feedLines bounds how much of the damage feed is shown.
	feedLines = 5
)

type Renderer struct {
	screen tcell.Screen
}

func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Draw renders the category grid, one terminal cell per grid cell, followed
// by the recipient's stats and this tick's damage feed.
func (r *Renderer) Draw(frame proto.Frame) {
	s := r.screen
	s.Clear()

	for y, row := range frame.Category {
		for x, category := range row {
			glyph, style := glyphEmpty, styleEmpty
			switch category {
			case sim.CategoryShip:
				var id sim.ShipID
				if y < len(frame.Identity) && x < len(frame.Identity[y]) {
					id = sim.ShipID(frame.Identity[y][x])
				}
				glyph, style = shipGlyph(id), styleShip
				if id == frame.Recipient {
					glyph, style = glyphOwn, styleOwn
				}
			case sim.CategoryBullet:
				glyph, style = glyphBullet, styleBullet
			case sim.CategoryUpgrade:
				glyph, style = glyphUpgrade, styleUpgrade
			}
			s.SetContent(x, y, glyph, nil, style)
		}
	}

	line := frame.Size() + 1
	r.text(0, line, fmt.Sprintf("ships %d  bullets %d", len(frame.Ships), len(frame.Bullets)))
	line++
	if own, ok := frame.Own(); ok {
		r.text(0, line, fmt.Sprintf("ship %d  hp %.1f/%.0f  at %.1f,%.1f", frame.Recipient, own.HP, own.MaxHP, own.X, own.Y))
		line++
		r.text(0, line, fmt.Sprintf("v %.2f  turn %.2f  repair %.3f", own.V, own.TurnRate, own.RepairRate))
		line++
		r.text(0, line, fmt.Sprintf("bullet ttl %.2f  speed %.2f  hp %.1f", own.BulletTTL, own.BulletSpeed, own.BulletHP))
	} else {
		r.text(0, line, fmt.Sprintf("watching as %d", frame.Recipient))
	}
	line++

	feed := frame.Damage
	if len(feed) > feedLines {
		feed = feed[len(feed)-feedLines:]
	}
	for _, rec := range slices.Backward(feed) {
		r.text(0, line, feedLine(rec))
		line++
	}

	s.Show()
}

func (r *Renderer) text(x, y int, str string) {
	for i, ch := range str {
		r.screen.SetContent(x+i, y, ch, nil, styleText)
	}
}

// shipGlyph labels other ships by the last digit of their id.
func shipGlyph(id sim.ShipID) rune {
	return rune('0' + id%10)
}

func feedLine(rec sim.DamageRecord) string {
	if rec.Attacker == rec.Victim {
		return fmt.Sprintf("%d fired (hp %.1f)", rec.Victim, rec.VictimHP)
	}
	verb := "hit"
	if rec.Lethal() {
		verb = "destroyed"
	}
	return fmt.Sprintf("%d %s %d (hp %.1f)", rec.Attacker, verb, rec.Victim, math.Max(rec.VictimHP, 0))
}

// FrameSource is what the spectator reads snapshots from.
type FrameSource interface {
	Next() (proto.Frame, error)
}

// Run draws every frame until the source fails, ctx ends or the viewer
// presses Escape, q or Ctrl-C.
func Run(ctx context.Context, screen tcell.Screen, source FrameSource) error {
	renderer := NewRenderer(screen)

	frames := make(chan proto.Frame, 1)
	readErr := make(chan error, 1)
	go func() {
		for {
			frame, err := source.Next()
			if err != nil {
				readErr <- err
				return
			}
			// Keep only the newest frame if drawing falls behind.
			select {
			case <-frames:
			default:
			}
			frames <- frame
		}
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				// Screen finalized.
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case frame := <-frames:
			renderer.Draw(frame)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}
}
