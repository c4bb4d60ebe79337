package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/singleflight"

	"totem-quiz-bot/internal/domain"
)

const (
	margin      = 25.0
	titleSize   = 48.0
	captionSize = 36.0
	jpegQuality = 85
)

type Options struct {
	OutputDir string
	TitleFont string
	TextFont  string
	LogoPath  string
}

// Renderer composes the shareable result picture: the animal photo with the
// user's caption, the animal name and the zoo logo on top.
type Renderer struct {
	opts   Options
	logger zerolog.Logger
	group  singleflight.Group
}

func New(opts Options, logger zerolog.Logger) *Renderer {
	if opts.OutputDir == "" {
		opts.OutputDir = "media/generated"
	}
	return &Renderer{opts: opts, logger: logger.With().Str("component", "render").Logger()}
}

// Render writes the result image for displayName and returns its path.
// Concurrent calls producing the same file share one render.
func (r *Renderer) Render(ctx context.Context, profile domain.AnimalProfile, displayName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out := filepath.Join(r.opts.OutputDir, OutputName(displayName, profile.Name))
	_, err, _ := r.group.Do(out, func() (any, error) {
		return nil, r.render(profile, displayName, out)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (r *Renderer) render(profile domain.AnimalProfile, displayName, out string) error {
	base, err := gg.LoadImage(profile.Image)
	if err != nil {
		return fmt.Errorf("open animal image %s: %w", profile.Image, err)
	}
	dc := gg.NewContextForImage(base)
	width, height := float64(dc.Width()), float64(dc.Height())

	r.useFont(dc, r.opts.TextFont, captionSize)
	caption := displayName + ", your totem animal is:"
	captionHeight := dc.FontHeight()
	barTop, barBottom := margin-10, margin+captionHeight+20
	dc.SetRGBA255(255, 255, 255, 150)
	dc.DrawRectangle(0, barTop, width, barBottom-barTop)
	dc.Fill()
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(caption, margin, (barTop+barBottom)/2, 0, 0.5)

	r.useFont(dc, r.opts.TitleFont, titleSize)
	titleWidth, titleHeight := dc.MeasureString(profile.Name)
	titleTop := height - margin - titleHeight - 30
	titleBottom := height - margin - 10
	dc.SetRGBA255(0, 0, 0, 120)
	dc.DrawRectangle(0, titleTop, margin+titleWidth+10, titleBottom-titleTop)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(profile.Name, margin, (titleTop+titleBottom)/2, 0, 0.5)

	r.drawLogo(dc)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := gg.SaveJPG(out, dc.Image(), jpegQuality); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	r.logger.Info().Str("path", out).Str("animal", string(profile.Key)).Msg("result image saved")
	return nil
}

func (r *Renderer) useFont(dc *gg.Context, path string, points float64) {
	if path == "" {
		return
	}
	if err := dc.LoadFontFace(path, points); err != nil {
		r.logger.Warn().Err(err).Str("font", path).Msg("font unavailable, using default face")
	}
}

func (r *Renderer) drawLogo(dc *gg.Context) {
	if r.opts.LogoPath == "" {
		return
	}
	logo, err := gg.LoadImage(r.opts.LogoPath)
	if err != nil {
		r.logger.Warn().Err(err).Str("logo", r.opts.LogoPath).Msg("logo not found")
		return
	}
	scaled := scaleToWidth(logo, dc.Width()/5)
	lw, lh := scaled.Bounds().Dx(), scaled.Bounds().Dy()
	x := float64(dc.Width()-lw) - margin
	y := float64(dc.Height()-lh) - margin

	dc.SetRGBA255(255, 255, 255, 150)
	dc.DrawRoundedRectangle(x-10, y-10, float64(lw)+20, float64(lh)+20, float64(lh+20)/2)
	dc.Fill()
	dc.DrawImage(scaled, int(x), int(y))
}

func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	if width <= 0 || b.Dx() == 0 {
		return src
	}
	height := width * b.Dy() / b.Dx()
	if height == 0 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// OutputName builds the generated file name from the letters and digits of
// the user name and the animal name.
func OutputName(displayName, animalName string) string {
	keep := func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}
	animal := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, animalName)
	return strings.Map(keep, displayName) + "_" + animal + ".jpg"
}
