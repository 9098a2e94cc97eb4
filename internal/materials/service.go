package materials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diredev/campushub/internal/ids"
	"github.com/diredev/campushub/internal/live"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrMaterialNotFound indicates the referenced material does not exist.
	ErrMaterialNotFound = errors.New("materials: material not found")
	// ErrEmptyTitle indicates a material title is empty after trimming.
	ErrEmptyTitle = errors.New("materials: title is empty")
	// ErrMissingUploader indicates a share is missing its uploader identity.
	ErrMissingUploader = errors.New("materials: uploader identity is required")
)

// Draft carries the caller-supplied fields of a shared material.
type Draft struct {
	Title     string
	Course    string
	Kind      Kind
	SizeLabel string
}

// ListFilter narrows a material listing.
type ListFilter struct {
	Kind   Kind
	Search string
}

// ServiceConfig describes the dependencies of the materials service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Dispatcher *live.Dispatcher
	Logger     *zap.Logger
}

// Service catalogs shared study materials.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ids.Provider
	dispatcher *live.Dispatcher
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("materials: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("materials: id provider required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("materials: dispatcher required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}, nil
}

// Share catalogs a new material. Only metadata is stored here; the
// upload itself goes to the external file store.
func (s *Service) Share(ctx context.Context, uploaderID, uploaderName string, draft Draft) (Material, error) {
	if uploaderID == "" {
		return Material{}, ErrMissingUploader
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Material{}, ErrEmptyTitle
	}
	if _, err := ParseKind(string(draft.Kind)); err != nil {
		return Material{}, err
	}

	materialID, err := s.idProvider.NewID()
	if err != nil {
		return Material{}, fmt.Errorf("materials: id generation failed: %w", err)
	}
	material := Material{
		MaterialID:       materialID,
		Title:            title,
		Course:           strings.TrimSpace(draft.Course),
		Kind:             draft.Kind,
		SizeLabel:        strings.TrimSpace(draft.SizeLabel),
		UploaderID:       uploaderID,
		UploaderName:     uploaderName,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&material).Error; err != nil {
		s.logger.Error("material insert failed", zap.String("uploader_id", uploaderID), zap.Error(err))
		return Material{}, fmt.Errorf("materials: insert failed: %w", err)
	}
	s.publish(live.ActionAdded, material.MaterialID)
	return material, nil
}

// List returns materials matching the filter, newest first with
// identifier tie-break.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Material, error) {
	query := s.db.WithContext(ctx).Model(&Material{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR course LIKE ?", pattern, pattern)
	}

	var result []Material
	if err := query.Order("created_at_s DESC, material_id ASC").Find(&result).Error; err != nil {
		s.logger.Error("material query failed", zap.Error(err))
		return nil, fmt.Errorf("materials: query failed: %w", err)
	}
	return result, nil
}

// Rate adds one star rating to the material's running total. Both
// counters move in a single atomic update so the average never sees a
// half-applied vote.
func (s *Service) Rate(ctx context.Context, materialID MaterialID, stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, stars)
	}
	result := s.db.WithContext(ctx).Model(&Material{}).
		Where("material_id = ?", materialID.String()).
		UpdateColumns(map[string]interface{}{
			"rating_total": gorm.Expr("rating_total + ?", stars),
			"rating_count": gorm.Expr("rating_count + ?", 1),
		})
	if result.Error != nil {
		s.logger.Error("rating update failed", zap.String("material_id", materialID.String()), zap.Error(result.Error))
		return fmt.Errorf("materials: rating update failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMaterialNotFound
	}
	s.publish(live.ActionModified, materialID.String())
	return nil
}

// RecordDownload bumps the download counter atomically.
func (s *Service) RecordDownload(ctx context.Context, materialID MaterialID) error {
	result := s.db.WithContext(ctx).Model(&Material{}).
		Where("material_id = ?", materialID.String()).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1))
	if result.Error != nil {
		s.logger.Error("download count failed", zap.String("material_id", materialID.String()), zap.Error(result.Error))
		return fmt.Errorf("materials: download count failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMaterialNotFound
	}
	s.publish(live.ActionModified, materialID.String())
	return nil
}

func (s *Service) publish(action live.Action, docID string) {
	s.dispatcher.Publish(live.Event{
		Topic:     live.TopicMaterials,
		Action:    action,
		DocID:     docID,
		Timestamp: s.clock().UTC(),
	})
}
