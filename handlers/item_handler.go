package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type ItemHandler struct {
	items   *services.ItemService
	posters *services.PosterService
}

func NewItemHandler(items *services.ItemService, posters *services.PosterService) *ItemHandler {
	return &ItemHandler{items: items, posters: posters}
}

type listItemsQuery struct {
	Status     string   `query:"status" validate:"omitempty,oneof=LOST FOUND RESOLVED"`
	Category   string   `query:"category"`
	IsResolved string   `query:"is_resolved"`
	Q          string   `query:"q"`
	Lat        *float64 `query:"lat" validate:"omitempty,min=-90,max=90"`
	Lng        *float64 `query:"lng" validate:"omitempty,min=-180,max=180"`
	Radius     *float64 `query:"radius" validate:"omitempty,gt=0"`
	Zip        string   `query:"zip" validate:"omitempty,len=5,numeric"`
	Page       int      `query:"page" validate:"omitempty,min=1"`
	Limit      int      `query:"limit" validate:"omitempty,min=1,max=50"`
}

type createItemRequest struct {
	Title       string   `json:"title" validate:"required,min=2,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Status      string   `json:"status" validate:"required,oneof=LOST FOUND RESOLVED"`
	CategoryID  string   `json:"categoryId" validate:"required,uuid"`
	ZipCode     *string  `json:"zipCode" validate:"omitempty,max=20"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IsResolved  *bool    `json:"isResolved"`
}

type updateItemRequest struct {
	Title        *string  `json:"title" validate:"omitempty,min=2,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=1000"`
	Status       *string  `json:"status" validate:"omitempty,oneof=LOST FOUND RESOLVED"`
	CategoryID   *string  `json:"categoryId" validate:"omitempty,uuid"`
	CategoryName *string  `json:"categoryName" validate:"omitempty,min=2"`
	ZipCode      *string  `json:"zipCode" validate:"omitempty,max=20"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IsResolved   *bool    `json:"isResolved"`
}

func (r updateItemRequest) empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil && r.CategoryID == nil &&
		r.CategoryName == nil && r.ZipCode == nil && r.Latitude == nil && r.Longitude == nil && r.IsResolved == nil
}

type photoURL struct {
	URL string `json:"url" validate:"required,url"`
}

type addPhotosRequest struct {
	Photos []photoURL `json:"photos" validate:"required,min=1,max=10,dive"`
}

func parseBoolFlag(v string) *bool {
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		b := true
		return &b
	}
	b := false
	return &b
}

func (h *ItemHandler) List(c *fiber.Ctx) error {
	var q listItemsQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.items.ListItems(c.UserContext(), services.ItemFilter{
		Status:     q.Status,
		Category:   q.Category,
		IsResolved: parseBoolFlag(q.IsResolved),
		Query:      q.Q,
		Lat:        q.Lat,
		Lng:        q.Lng,
		Radius:     q.Radius,
		Zip:        q.Zip,
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		return err
	}
	return utils.OKWithMeta(c, page.Items, utils.NewPageMeta(page.Page, page.Limit, page.Total))
}

func (h *ItemHandler) Get(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	item, err := h.items.GetItem(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.OK(c, item)
}

func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var req createItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.items.CreateItem(c.UserContext(), middleware.CurrentUserID(c), services.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		CategoryID:  uuid.MustParse(req.CategoryID),
		ZipCode:     req.ZipCode,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IsResolved:  req.IsResolved,
	})
	if err != nil {
		return err
	}
	return utils.Created(c, item)
}

func (h *ItemHandler) Update(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req updateItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.empty() {
		return utils.ErrValidation("At least one field required")
	}

	in := services.UpdateItemInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		CategoryName: req.CategoryName,
		ZipCode:      req.ZipCode,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		IsResolved:   req.IsResolved,
	}
	if req.CategoryID != nil {
		categoryID := uuid.MustParse(*req.CategoryID)
		in.CategoryID = &categoryID
	}

	item, err := h.items.UpdateItem(c.UserContext(), id, middleware.CurrentUserID(c), in)
	if err != nil {
		return err
	}
	return utils.OK(c, item)
}

func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.items.DeleteItem(c.UserContext(), id, middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddPhotos accepts either multipart files under "photos" or a JSON list of
// already uploaded URLs.
func (h *ItemHandler) AddPhotos(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	userID := middleware.CurrentUserID(c)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return utils.ErrBadRequest("", "Invalid multipart form")
		}
		files := form.File["photos"]
		if len(files) == 0 {
			return utils.ErrValidation("At least one photo is required")
		}
		photos, err := h.items.UploadPhotos(c.UserContext(), id, userID, files)
		if err != nil {
			return err
		}
		return utils.Created(c, photos)
	}

	var req addPhotosRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	inputs := make([]services.PhotoInput, len(req.Photos))
	for i, p := range req.Photos {
		inputs[i] = services.PhotoInput{URL: p.URL}
	}
	photos, err := h.items.AddPhotos(c.UserContext(), id, userID, inputs)
	if err != nil {
		return err
	}
	return utils.Created(c, photos)
}

func (h *ItemHandler) DeletePhoto(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	photoID, err := uuidParam(c, "photoId")
	if err != nil {
		return err
	}
	if err := h.items.DeletePhoto(c.UserContext(), id, middleware.CurrentUserID(c), photoID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ItemHandler) Poster(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	pdf, err := h.posters.Generate(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="poster-`+id.String()+`.pdf"`)
	return c.Send(pdf)
}

func (h *ItemHandler) PublishPoster(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	url, err := h.posters.Publish(c.UserContext(), id, middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.Created(c, fiber.Map{"url": url})
}
