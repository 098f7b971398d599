package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/spf13/cobra"

	"nesgo/internal/config"
	"nesgo/internal/input"
	"nesgo/internal/machine"
)

func runCmd() *cobra.Command {
	var configPath string
	var regionName string
	var scale int

	cmd := &cobra.Command{
		Use:   "run <rom>",
		Short: "Run a ROM interactively in an ebiten window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cmd.Flags().Changed("region") {
				regionName = cfg.TVRegion
			}

			romBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			m := machine.New(machine.FormatRGB888, parseRegion(regionName), cfg.Audio.SampleRate)
			if err := m.InsertCartridge(romBytes); err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}
			if cfg.PalettePath != "" {
				f, err := os.Open(cfg.PalettePath)
				if err != nil {
					return fmt.Errorf("loading palette %s: %w", cfg.PalettePath, err)
				}
				err = m.LoadPaletteFile(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("loading palette %s: %w", cfg.PalettePath, err)
				}
			}

			game := &ebitenGame{machine: m, scale: scale}
			game.frameImage = ebiten.NewImage(256, 240)

			if !cfg.Audio.Enabled {
				ebiten.SetWindowTitle(fmt.Sprintf("nesgo - %s", args[0]))
				ebiten.SetWindowSize(256*scale, 240*scale)
				return ebiten.RunGame(game)
			}

			audioCtx := audio.NewContext(cfg.Audio.SampleRate)
			stream := &sampleStream{volume: cfg.Audio.Volume}
			if player, err := audioCtx.NewPlayer(stream); err == nil {
				player.Play()
				game.audioStream = stream
			}

			ebiten.SetWindowTitle(fmt.Sprintf("nesgo - %s", args[0]))
			ebiten.SetWindowSize(256*scale, 240*scale)
			ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

			return ebiten.RunGame(game)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON config file")
	cmd.Flags().StringVar(&regionName, "region", "ntsc", "ntsc, pal, or dendy")
	cmd.Flags().IntVar(&scale, "scale", 3, "integer window scale")
	return cmd
}

var keyButtons = map[ebiten.Key]input.Button{
	ebiten.KeyArrowUp:    input.Up,
	ebiten.KeyArrowDown:  input.Down,
	ebiten.KeyArrowLeft:  input.Left,
	ebiten.KeyArrowRight: input.Right,
	ebiten.KeyZ:          input.A,
	ebiten.KeyX:          input.B,
	ebiten.KeyEnter:      input.Start,
	ebiten.KeySpace:      input.Select,
}

// ebitenGame implements ebiten.Game, driving one emulated frame per host
// frame and rendering the machine's FormatRGB888 buffer (RGBA8888 bytes)
// into an ebiten.Image.
type ebitenGame struct {
	machine     *machine.Machine
	scale       int
	frameImage  *ebiten.Image
	audioStream *sampleStream
}

func (g *ebitenGame) Update() error {
	for key, button := range keyButtons {
		g.machine.SetButton(0, button, ebiten.IsKeyPressed(key))
	}
	samples := g.machine.RunFrame(g.audioStream != nil)
	if g.audioStream != nil {
		g.audioStream.push(samples)
	}
	return nil
}

func (g *ebitenGame) Draw(screen *ebiten.Image) {
	rgba := g.machine.RenderBuffer()
	g.frameImage.WritePixels(rgba)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.frameImage, op)
}

func (g *ebitenGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 256 * g.scale, 240 * g.scale
}

// sampleStream adapts the machine's stereo float32 samples into the 16-bit
// stereo PCM byte stream ebiten's audio player expects.
type sampleStream struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	volume float64
}

func (s *sampleStream) push(samples []machine.StereoSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		l := int16(clampFloat(sample.Left) * float32(s.volume) * 32767)
		r := int16(clampFloat(sample.Right) * float32(s.volume) * 32767)
		s.buf.Write([]byte{byte(l), byte(l >> 8), byte(r), byte(r >> 8)})
	}
}

func (s *sampleStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Len() == 0 {
		// Starve silently rather than blocking the audio callback; a
		// short gap in playback is preferable to stalling the frame
		// loop waiting for the emulator to catch up.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	return s.buf.Read(p)
}

var _ io.Reader = (*sampleStream)(nil)

func clampFloat(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
