package media

import (
	"fmt"
	"image"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCard renders a final slide with a QR code pointing at the full report, so
// the patient can jump from the video to the document itself.
func QRCard(url string, canvasW, canvasH int) (SourceImage, error) {
	if url == "" {
		return SourceImage{}, fmt.Errorf("qr card: empty url")
	}

	// Код занимает половину меньшей стороны холста
	side := canvasW
	if canvasH < side {
		side = canvasH
	}
	side /= 2
	if side < 64 {
		side = 64
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return SourceImage{}, fmt.Errorf("qr card: %w", err)
	}
	code := qr.Image(side)

	card := image.NewNRGBA(image.Rect(0, 0, canvasW, canvasH))
	draw.Draw(card, card.Bounds(), image.NewUniform(DefaultFill), image.Point{}, draw.Src)

	offset := image.Pt((canvasW-side)/2, (canvasH-side)/2)
	draw.Draw(card, code.Bounds().Add(offset), code, code.Bounds().Min, draw.Over)

	return SourceImage{
		PageNumber: 0,
		Pixels:     card,
		Caption:    "Scan to open the full report",
	}, nil
}
