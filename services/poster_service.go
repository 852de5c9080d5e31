package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
)

var ErrPostersDisabled = utils.NewAppError(503, "SERVICE_UNAVAILABLE", "Poster generation is not enabled")

var posterTemplate = template.Must(template.New("poster").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 48px; text-align: center; }
  h1 { font-size: 72px; margin: 0; letter-spacing: 4px; }
  h2 { font-size: 32px; margin: 16px 0; }
  img { max-width: 100%; max-height: 420px; margin: 24px 0; }
  .meta { font-size: 20px; color: #444; }
  .link { margin-top: 32px; font-size: 18px; }
</style>
</head>
<body>
  <h1>{{.Heading}}</h1>
  <h2>{{.Title}}</h2>
  {{if .PhotoURL}}<img src="{{.PhotoURL}}" alt="">{{end}}
  {{if .Description}}<p class="meta">{{.Description}}</p>{{end}}
  <p class="meta">{{.Category}}{{if .ZipCode}} &middot; near {{.ZipCode}}{{end}} &middot; reported {{.Reported}}</p>
  <p class="link">{{.Link}}</p>
</body>
</html>`))

type posterData struct {
	Heading     string
	Title       string
	Description string
	PhotoURL    string
	Category    string
	ZipCode     string
	Reported    string
	Link        string
}

// PosterService renders printable flyers for items through headless Chrome.
type PosterService struct {
	items       *ItemService
	images      ImageStore
	enabled     bool
	frontendURL string
	log         *zap.Logger
}

func NewPosterService(items *ItemService, images ImageStore, enabled bool, frontendURL string, log *zap.Logger) *PosterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PosterService{items: items, images: images, enabled: enabled, frontendURL: frontendURL, log: log}
}

// RenderHTML fills the poster template for item.
func (s *PosterService) RenderHTML(item *models.Item) (string, error) {
	data := posterData{
		Heading:  item.Status,
		Title:    item.Title,
		Reported: item.DateReported.Format("January 2, 2006"),
		Link:     fmt.Sprintf("%s/items/%s", s.frontendURL, item.ID),
	}
	switch item.Status {
	case models.ItemStatusLost:
		data.Heading = "LOST"
	case models.ItemStatusFound:
		data.Heading = "FOUND"
	}
	if item.Description != nil {
		data.Description = *item.Description
	}
	if url := item.PrimaryPhotoURL(); url != nil {
		data.PhotoURL = *url
	}
	if item.Category != nil {
		data.Category = item.Category.Name
	}
	if item.ZipCode != nil {
		data.ZipCode = *item.ZipCode
	}

	var rendered bytes.Buffer
	if err := posterTemplate.Execute(&rendered, data); err != nil {
		return "", fmt.Errorf("render poster: %w", err)
	}
	return rendered.String(), nil
}

// Generate returns the poster for itemID as a PDF.
func (s *PosterService) Generate(ctx context.Context, itemID uuid.UUID) ([]byte, error) {
	if !s.enabled {
		return nil, ErrPostersDisabled
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	htmlContent, err := s.RenderHTML(item)
	if err != nil {
		return nil, err
	}
	return printPDF(ctx, htmlContent)
}

// Publish renders the owner's poster and stores it with the image store,
// returning its public URL.
func (s *PosterService) Publish(ctx context.Context, itemID, ownerID uuid.UUID) (string, error) {
	if _, err := s.items.loadOwned(ctx, itemID, ownerID); err != nil {
		return "", err
	}
	if s.images == nil {
		return "", utils.NewAppError(503, "SERVICE_UNAVAILABLE", "File storage is not configured")
	}
	pdf, err := s.Generate(ctx, itemID)
	if err != nil {
		return "", err
	}
	uploaded, err := s.images.UploadRaw(ctx, bytes.NewReader(pdf), FolderPosters, "poster_"+itemID.String())
	if err != nil {
		return "", err
	}
	s.log.Info("poster published", zap.String("item_id", itemID.String()), zap.String("url", uploaded.URL))
	return uploaded.URL, nil
}

func printPDF(parent context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print poster: %w", err)
	}
	return pdfBuffer, nil
}
