package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"finance-bot/internal/model"
)

// CategoryRepository manages expense categories. Categories are shared
// across users and append-only.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a new category. Names are case-sensitively unique.
func (r *CategoryRepository) Create(ctx context.Context, name string) (*model.Category, error) {
	db := r.db.WithContext(ctx)

	var existing model.Category
	err := db.Where("name = ?", name).First(&existing).Error
	switch {
	case err == nil:
		return nil, ErrDuplicateCategory
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}

	category := model.Category{Name: name}
	if err := db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

// List returns all categories in insertion order.
func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}
