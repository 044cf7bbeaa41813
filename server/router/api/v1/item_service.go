package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cogniflow/plugin/ai/intake"
	apperrors "github.com/hrygo/cogniflow/server/internal/errors"
	"github.com/hrygo/cogniflow/server/service/item"
	"github.com/hrygo/cogniflow/store"
)

const maxListLimit = 200

// CreateItemRequest creates an item. When only Text is set it is
// classified as free text; otherwise the explicit fields are stored as is.
type CreateItemRequest struct {
	Text        string         `json:"text"`
	Type        store.ItemType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     *string        `json:"due_date"`
	StartTime   *string        `json:"start_time"`
	EndTime     *string        `json:"end_time"`
	Priority    store.Priority `json:"priority"`
	Tags        []string       `json:"tags"`
	Entities    map[string]any `json:"entities"`
}

func (r *CreateItemRequest) isFreeText() bool {
	return r.Title == "" && r.Type == "" && r.DueDate == nil && r.StartTime == nil && r.EndTime == nil
}

// CreateItem creates an item from free text or explicit fields.
// POST /api/v1/items
func (s *APIV1Service) CreateItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := &CreateItemRequest{}
	if err := bindBody(c, req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if req.isFreeText() {
		if strings.TrimSpace(req.Text) == "" {
			return apperrors.InvalidArgument("text is required")
		}
		result, err := s.ItemService.CreateFromText(ctx, userID, req.Text)
		if err != nil {
			return err
		}
		status := http.StatusOK
		if result.Item != nil {
			status = http.StatusCreated
		}
		return c.JSON(status, convertIntakeResult(result))
	}

	created, err := s.ItemService.Create(ctx, &store.Item{
		UserID:      userID,
		Type:        req.Type,
		RawText:     req.Text,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Entities:    req.Entities,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convertItemFromStore(created))
}

// CreateItemFromTemplateRequest fills a registered template.
type CreateItemFromTemplateRequest struct {
	Trigger string            `json:"trigger"`
	Values  map[string]string `json:"values"`
}

// CreateItemFromTemplate creates an item from a template form.
// POST /api/v1/items/template
func (s *APIV1Service) CreateItemFromTemplate(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := &CreateItemFromTemplateRequest{}
	if err := bindBody(c, req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Trigger) == "" {
		return apperrors.InvalidArgument("trigger is required")
	}
	created, err := s.ItemService.CreateFromTemplate(c.Request().Context(), userID, req.Trigger, req.Values)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convertItemFromStore(created))
}

// ListItems lists the caller's items.
// GET /api/v1/items?type=&status=&archived=&limit=&offset=
func (s *APIV1Service) ListItems(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var (
		itemType, status string
		opts             item.ListOptions
	)
	if err := echo.QueryParamsBinder(c).
		String("type", &itemType).
		String("status", &status).
		Bool("archived", &opts.Archived).
		Int("limit", &opts.Limit).
		Int("offset", &opts.Offset).
		BindError(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "invalid query parameters")
	}
	if itemType != "" {
		t := store.ItemType(itemType)
		if !t.IsValid() {
			return apperrors.InvalidArgument("unknown item type")
		}
		opts.Type = &t
	}
	if status != "" {
		st := store.ItemStatus(status)
		if st != store.ItemStatusPending && st != store.ItemStatusCompleted {
			return apperrors.InvalidArgument("unknown item status")
		}
		opts.Status = &st
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return apperrors.InvalidArgument("limit and offset must not be negative")
	}
	opts.Limit = min(opts.Limit, maxListLimit)

	items, err := s.ItemService.List(c.Request().Context(), userID, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": convertItemsFromStore(items)})
}

// GetItem returns one item.
// GET /api/v1/items/:id
func (s *APIV1Service) GetItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	found, err := s.ItemService.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertItemFromStore(found))
}

// UpdateItemRequest is a partial update. Omitted fields are unchanged and
// an empty time string clears the value.
type UpdateItemRequest struct {
	Type        *store.ItemType   `json:"type"`
	Status      *store.ItemStatus `json:"status"`
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	DueDate     *string           `json:"due_date"`
	StartTime   *string           `json:"start_time"`
	EndTime     *string           `json:"end_time"`
	Priority    *store.Priority   `json:"priority"`
	Tags        *[]string         `json:"tags"`
	Entities    *map[string]any   `json:"entities"`
}

// UpdateItem updates an item.
// PUT /api/v1/items/:id
func (s *APIV1Service) UpdateItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req := &UpdateItemRequest{}
	if err := bindBody(c, req); err != nil {
		return err
	}
	if req.Status != nil && *req.Status != store.ItemStatusPending && *req.Status != store.ItemStatusCompleted {
		return apperrors.InvalidArgument("unknown item status")
	}

	updated, err := s.ItemService.Update(c.Request().Context(), userID, &store.UpdateItem{
		ID:          id,
		Type:        req.Type,
		Status:      req.Status,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Entities:    req.Entities,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertItemFromStore(updated))
}

// DeleteItem soft-deletes an item.
// DELETE /api/v1/items/:id
func (s *APIV1Service) DeleteItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.ItemService.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ArchiveItem archives an item.
// POST /api/v1/items/:id/archive
func (s *APIV1Service) ArchiveItem(c echo.Context) error {
	return s.itemAction(c, s.ItemService.Archive)
}

// UnarchiveItem restores an archived item.
// POST /api/v1/items/:id/unarchive
func (s *APIV1Service) UnarchiveItem(c echo.Context) error {
	return s.itemAction(c, s.ItemService.Unarchive)
}

// CompleteItem marks an item completed.
// POST /api/v1/items/:id/complete
func (s *APIV1Service) CompleteItem(c echo.Context) error {
	return s.itemAction(c, s.ItemService.Complete)
}

type itemActionFunc = func(ctx context.Context, userID, id int32) (*store.Item, error)

func (s *APIV1Service) itemAction(c echo.Context, action itemActionFunc) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	updated, err := action(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertItemFromStore(updated))
}

// ToggleSubItem flips a checklist entry.
// POST /api/v1/items/:id/sub-items/:subId/toggle
func (s *APIV1Service) ToggleSubItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	subID := c.Param("subId")
	if subID == "" {
		return apperrors.InvalidArgument("invalid subId")
	}
	updated, err := s.ItemService.ToggleSubItem(c.Request().Context(), userID, id, subID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertItemFromStore(updated))
}

// GetFreeSlots suggests alternative slots for an event.
// GET /api/v1/items/:id/free-slots
func (s *APIV1Service) GetFreeSlots(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	slots, err := s.ItemService.FreeSlots(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"slots": slots})
}

// QueryItems runs a structured query.
// POST /api/v1/items/query
func (s *APIV1Service) QueryItems(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := &intake.QueryIntent{}
	if err := bindBody(c, req); err != nil {
		return err
	}
	items, err := s.ItemService.Query(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": convertItemsFromStore(items)})
}

// SearchItems runs a full-text search with highlighted snippets.
// GET /api/v1/items/search?q=
func (s *APIV1Service) SearchItems(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apperrors.InvalidArgument("q is required")
	}
	hits, err := s.ItemService.Search(c.Request().Context(), userID, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"results": convertSearchHits(hits)})
}

// GetItemFeed renders the caller's recent items as RSS.
// GET /api/v1/items/feed.rss
func (s *APIV1Service) GetItemFeed(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	baseURL := ""
	if s.Profile != nil {
		baseURL = s.Profile.InstanceURL
	}
	if baseURL == "" {
		baseURL = c.Scheme() + "://" + c.Request().Host
	}
	rss, err := s.ItemService.Feed(c.Request().Context(), userID, baseURL)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
