package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"screen-ocr-overlay/src/region"
)

const googleVisionURL = "https://vision.googleapis.com/v1/images:annotate"

// Google calls the Cloud Vision REST API with an API key.
type Google struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewGoogle builds a Vision recognizer. An empty endpoint uses the public API.
func NewGoogle(apiKey, endpoint string, logger *slog.Logger) *Google {
	if endpoint == "" {
		endpoint = googleVisionURL
	}
	return &Google{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 45 * time.Second},
		logger:   logger,
	}
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Pages []struct {
				Blocks []visionBlock `json:"blocks"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

type visionBlock struct {
	BoundingBox visionPoly `json:"boundingBox"`
	Paragraphs  []struct {
		Words []struct {
			Symbols []visionSymbol `json:"symbols"`
		} `json:"words"`
	} `json:"paragraphs"`
}

type visionSymbol struct {
	Text        string     `json:"text"`
	Confidence  float64    `json:"confidence"`
	BoundingBox visionPoly `json:"boundingBox"`
	Property    *struct {
		DetectedBreak *struct {
			Type string `json:"type"`
		} `json:"detectedBreak"`
	} `json:"property"`
}

type visionPoly struct {
	Vertices []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"vertices"`
}

func (p visionPoly) rect() image.Rectangle {
	pts := make([]image.Point, len(p.Vertices))
	for i, v := range p.Vertices {
		pts[i] = image.Pt(v.X, v.Y)
	}
	return rectFromPoints(pts)
}

func (s visionSymbol) endsLine() bool {
	if s.Property == nil || s.Property.DetectedBreak == nil {
		return false
	}
	switch s.Property.DetectedBreak.Type {
	case "LINE_BREAK", "EOL_SURE_SPACE":
		return true
	}
	return false
}

// Recognize uploads the image and converts the annotation to lines of
// characters, breaking lines where Vision reports a line break.
func (g *Google) Recognize(ctx context.Context, imagePath string, rc region.Context) (*RawData, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", ErrRecognition, err)
	}
	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrRecognition, err)
	}

	endpoint := g.endpoint + "?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRecognition, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: vision request failed: %v", ErrRecognition, err)
	}
	defer resp.Body.Close()

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response (status %d): %v", ErrRecognition, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: vision returned status %d", ErrRecognition, resp.StatusCode)
	}
	if len(parsed.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty vision response", ErrRecognition)
	}
	r := parsed.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return nil, fmt.Errorf("%w: vision error %d: %s", ErrRecognition, r.Error.Code, r.Error.Message)
	}

	raw := &RawData{}
	if r.FullTextAnnotation == nil {
		g.logger.Debug("vision found no text", "path", imagePath)
		return raw, nil
	}

	var rects []image.Rectangle
	var line []Char
	for _, page := range r.FullTextAnnotation.Pages {
		for _, block := range page.Blocks {
			rects = append(rects, block.BoundingBox.rect())
			for _, para := range block.Paragraphs {
				for _, word := range para.Words {
					for _, sym := range word.Symbols {
						line = append(line, symbolChar(sym, len(raw.Lines), rc))
						if sym.endsLine() {
							raw.Lines = append(raw.Lines, line)
							line = nil
						}
					}
				}
			}
		}
	}
	if len(line) > 0 {
		raw.Lines = append(raw.Lines, line)
	}
	raw.Blocks = assignBlocks(raw.Lines, rects, rc)

	g.logger.Debug("vision recognized",
		"lines", len(raw.Lines),
		"blocks", len(raw.Blocks),
		"duration", time.Since(start))
	return raw, nil
}

func symbolChar(s visionSymbol, line int, rc region.Context) Char {
	r := s.BoundingBox.rect()
	conf := 100.0
	if s.Confidence > 0 {
		conf = s.Confidence * 100
	}
	return Char{
		Text: s.Text,
		Line: line,
		Conf: conf,
		Box:  region.New(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), rc),
	}
}
