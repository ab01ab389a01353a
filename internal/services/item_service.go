package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/models"
	apperrors "github.com/charlesng35/itemhub/pkg/errors"
)

// CreateItemInput captures the payload for a new item.
type CreateItemInput struct {
	Title       string
	Description string
}

// UpdateItemInput enumerates mutable item attributes.
type UpdateItemInput struct {
	Title       *string
	Description *string
}

// ItemService manages items. Every read and write is scoped to the acting user:
// superusers see everything, everyone else only what they own.
type ItemService struct {
	db *gorm.DB
}

// NewItemService constructs an ItemService.
func NewItemService(db *gorm.DB) (*ItemService, error) {
	if db == nil {
		return nil, errors.New("item service: db is required")
	}
	return &ItemService{db: db}, nil
}

// List returns a page of items visible to actor along with the total count.
func (s *ItemService) List(ctx context.Context, actor *models.User, opts ListOptions) ([]models.Item, int64, error) {
	ctx = ensureContext(ctx)
	if actor == nil {
		return nil, 0, apperrors.ErrUnauthorized
	}
	opts = opts.Normalise()

	query := s.db.WithContext(ctx).Model(&models.Item{})
	if !actor.IsSuperuser {
		query = query.Where("owner_id = ?", actor.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("item service: count items: %w", err)
	}

	var items []models.Item
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(opts.Offset).
		Limit(opts.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("item service: list items: %w", err)
	}
	return items, total, nil
}

// Create stores a new item owned by ownerID.
func (s *ItemService) Create(ctx context.Context, ownerID string, input CreateItemInput) (*models.Item, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.New("item service: owner id is required")
	}

	item := &models.Item{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     ownerID,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, fmt.Errorf("item service: create item: %w", err)
	}
	return item, nil
}

// Get loads an item the actor is allowed to see.
func (s *ItemService) Get(ctx context.Context, actor *models.User, id string) (*models.Item, error) {
	ctx = ensureContext(ctx)

	var item models.Item
	err := s.db.WithContext(ctx).Take(&item, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item service: get item: %w", err)
	}

	if !canManage(actor, &item) {
		return nil, apperrors.ErrForbidden
	}
	return &item, nil
}

// Update modifies an item the actor owns, or any item for superusers.
func (s *ItemService) Update(ctx context.Context, actor *models.User, id string, input UpdateItemInput) (*models.Item, error) {
	ctx = ensureContext(ctx)

	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("item service: update item: %w", err)
	}
	return s.Get(ctx, actor, item.ID)
}

// Delete removes an item and returns the deleted record.
func (s *ItemService) Delete(ctx context.Context, actor *models.User, id string) (*models.Item, error) {
	ctx = ensureContext(ctx)

	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", item.ID).Error; err != nil {
		return nil, fmt.Errorf("item service: delete item: %w", err)
	}
	return item, nil
}

func canManage(actor *models.User, item *models.Item) bool {
	if actor == nil || item == nil {
		return false
	}
	return actor.IsSuperuser || item.OwnerID == actor.ID
}
