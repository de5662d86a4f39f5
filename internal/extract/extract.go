// Package extract pulls the narration script and the diagnostic stills out of
// a fixed-layout report PDF. The report template is stable, so pages are
// addressed by position, not by content search.
package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"github.com/ivlev/report2video/internal/logging"
	"github.com/ivlev/report2video/internal/media"
)

// Explanation text lives on these 0-based pages of the report template.
var explanationPages = []int{11, 12}

// Diagnostic images live on these 0-based pages.
var imagePages = []int{3, 4, 5, 6, 9, 10}

// Captions keyed by 1-based page number, matching the report template.
var pageCaptions = map[int]string{
	4:  "Figure 1: Sagittal T2 MRI",
	5:  "Figure 2: Sagittal T2 MRI Findings",
	6:  "Figure 3: Sagittal T2 MRI Foraminal",
	7:  "Figure 4: Axial T2 MRI",
	10: "Spine Illustration - Sagittal",
	11: "Spine Illustration - Axial",
}

const DefaultDPI = 150

// Content is the extraction result handed to the rest of the pipeline.
type Content struct {
	PatientExplanation string
	Images             []media.SourceImage
}

// ReportExtractor reads one report PDF. Not safe for concurrent use; open one
// extractor per document.
type ReportExtractor struct {
	doc    *fitz.Document
	path   string
	dpi    int
	logger zerolog.Logger
}

// NewReportExtractor opens a report PDF. Zero dpi falls back to DefaultDPI.
func NewReportExtractor(path string, dpi int) (*ReportExtractor, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &ReportExtractor{
		doc:    doc,
		path:   path,
		dpi:    dpi,
		logger: logging.WithComponent("extract"),
	}, nil
}

func (e *ReportExtractor) Close() error {
	return e.doc.Close()
}

// ExtractAll returns the cleaned narration text and the fixed image set.
func (e *ReportExtractor) ExtractAll() (*Content, error) {
	text, err := e.PatientExplanation()
	if err != nil {
		return nil, err
	}
	return &Content{
		PatientExplanation: text,
		Images:             e.Images(),
	}, nil
}

// PatientExplanation extracts and cleans the simplified-explanation section.
func (e *ReportExtractor) PatientExplanation() (string, error) {
	var raw strings.Builder
	pages := e.doc.NumPage()

	for _, p := range explanationPages {
		if p >= pages {
			continue
		}
		text, err := e.doc.Text(p)
		if err != nil {
			return "", fmt.Errorf("page %d text: %w", p+1, err)
		}
		raw.WriteString(text)
		raw.WriteString("\n")
	}

	return CleanExplanation(raw.String()), nil
}

// Images renders the fixed diagnostic pages. A page that fails to render is
// logged and skipped: images are decoration for the narration, not content
// worth failing the run over.
func (e *ReportExtractor) Images() []media.SourceImage {
	var images []media.SourceImage
	pages := e.doc.NumPage()

	for _, p := range imagePages {
		if p >= pages {
			continue
		}
		img, err := e.doc.ImageDPI(p, float64(e.dpi))
		if err != nil {
			e.logger.Warn().Err(err).Int("page", p+1).Msg("page render failed, skipping")
			continue
		}

		pageNum := p + 1
		caption, ok := pageCaptions[pageNum]
		if !ok {
			caption = media.DefaultCaption(pageNum)
		}

		images = append(images, media.SourceImage{
			PageNumber: pageNum,
			Pixels:     img,
			Caption:    caption,
		})
	}

	return images
}
