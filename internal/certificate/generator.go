// Package certificate renders QR certificates that point third parties at the
// public verification endpoint. The QR carries only the verification URL; all
// data stays behind the projection that endpoint serves.
package certificate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"

	"residency/internal/application"
	"residency/internal/files"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

// DefaultSize is the rendered PNG edge length in pixels.
const DefaultSize = 256

// Options controls QR rendering. Zero values take defaults: png, medium
// recovery, DefaultSize, the library's standard quiet zone, black on white.
// Margin is a pixel border drawn in the background color; nil keeps the
// default quiet zone, 0 removes it entirely.
type Options struct {
	Format     string `json:"format"`
	Level      string `json:"level"`
	Size       int    `json:"size"`
	Margin     *int   `json:"margin"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
}

// ApplicationReader confirms the application a certificate refers to exists;
// implemented by the application service.
type ApplicationReader interface {
	Get(ctx context.Context, appID id.ApplicationID) (*application.Application, error)
}

// Generator produces certificate PNGs, either inline or persisted under the
// public certificate directory.
type Generator struct {
	apps    ApplicationReader
	store   files.Store
	baseURL string
}

// NewGenerator builds a generator. baseURL is the externally reachable prefix
// the verification path is appended to.
func NewGenerator(apps ApplicationReader, store files.Store, baseURL string) *Generator {
	return &Generator{apps: apps, store: store, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// VerificationURL is the content every certificate encodes.
func (g *Generator) VerificationURL(appID id.ApplicationID) string {
	return fmt.Sprintf("%s/verify/%s", g.baseURL, appID)
}

// Generate renders the certificate PNG for an application. Identical inputs
// produce identical bytes, so regeneration is cheap and comparable.
func (g *Generator) Generate(ctx context.Context, appID id.ApplicationID, opts Options) ([]byte, error) {
	if _, err := g.apps.Get(ctx, appID); err != nil {
		return nil, err
	}

	if format := strings.ToLower(opts.Format); format != "" && format != "png" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "format must be png")
	}
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	size := opts.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 64 || size > 2048 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "size must be between 64 and 2048 pixels")
	}

	q, err := qrcode.New(g.VerificationURL(appID), level)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build qr code")
	}
	if q.ForegroundColor, err = parseColor(opts.Foreground, color.Black); err != nil {
		return nil, err
	}
	if q.BackgroundColor, err = parseColor(opts.Background, color.White); err != nil {
		return nil, err
	}

	if opts.Margin == nil {
		out, err := q.PNG(size)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code")
		}
		return out, nil
	}
	return renderWithMargin(q, size, *opts.Margin)
}

// renderWithMargin replaces the library's fixed quiet zone with an exact pixel
// border: the code is drawn without its built-in border and composited onto a
// background-colored canvas of the requested size.
func renderWithMargin(q *qrcode.QRCode, size, margin int) ([]byte, error) {
	if margin < 0 || size-2*margin < 64 {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"margin must be non-negative and leave at least 64 pixels of code")
	}
	q.DisableBorder = true

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(q.BackgroundColor), image.Point{}, draw.Src)
	code := q.Image(size - 2*margin)
	draw.Draw(canvas, image.Rect(margin, margin, size-margin, size-margin), code, code.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code")
	}
	return buf.Bytes(), nil
}

// Persist renders the certificate and writes it to the certificate store,
// returning the artifact reference.
func (g *Generator) Persist(ctx context.Context, appID id.ApplicationID, opts Options) (files.Ref, error) {
	encoded, err := g.Generate(ctx, appID, opts)
	if err != nil {
		return files.Ref{}, err
	}
	ref, err := g.store.Save(ctx, appID.String()+".png", bytes.NewReader(encoded))
	if err != nil {
		return files.Ref{}, dErrors.Wrap(err, dErrors.CodeStorageIO, "failed to persist certificate")
	}
	return ref, nil
}

// Delete removes a persisted certificate. Absence is not an error.
func (g *Generator) Delete(ctx context.Context, storagePath string) error {
	if err := g.store.Delete(ctx, storagePath); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageIO, "failed to delete certificate")
	}
	return nil
}

// parseLevel maps the public level names onto the library's recovery tiers.
// The library's names are shifted by one: its High is the 25% quartile tier
// and its Highest is the 30% tier the API calls high.
func parseLevel(raw string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(raw) {
	case "", "medium":
		return qrcode.Medium, nil
	case "low":
		return qrcode.Low, nil
	case "quartile":
		return qrcode.High, nil
	case "high", "highest":
		return qrcode.Highest, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "level must be low, medium, quartile or high")
	}
}

// parseColor reads a #RRGGBB hex color, falling back when raw is empty.
func parseColor(raw string, fallback color.Color) (color.Color, error) {
	if raw == "" {
		return fallback, nil
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.ToLower(raw), "#%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "colors must be #RRGGBB hex")
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
