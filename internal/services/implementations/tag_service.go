package implementations

import (
	"context"
	"fmt"
	"strings"

	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
)

// TagServiceImpl implements the catalog.TagService interface
type TagServiceImpl struct {
	tags   catalog.TagRepository
	tx     catalog.Transactor
	logger *observability.Logger
}

// NewTagService creates a new tag service implementation
func NewTagService(tags catalog.TagRepository, tx catalog.Transactor, logger *observability.Logger) catalog.TagService {
	return &TagServiceImpl{
		tags:   tags,
		tx:     tx,
		logger: logger,
	}
}

func (s *TagServiceImpl) ListTags(ctx context.Context) ([]*catalog.Tag, error) {
	return s.tags.List(ctx)
}

func (s *TagServiceImpl) GetTagByName(ctx context.Context, name string) (*catalog.Tag, error) {
	return s.tags.GetByName(ctx, strings.TrimSpace(name))
}

// CreateTag creates a tag with a unique name
func (s *TagServiceImpl) CreateTag(ctx context.Context, name, description string) (*catalog.Tag, error) {
	tag := &catalog.Tag{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := tag.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.tags.ExistsByName(ctx, tag.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", catalog.ErrTagExists, tag.Name)
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info(ctx).Int64("tag_id", tag.ID).Str("tag", tag.Name).Msg("tag created")
	return tag, nil
}

// DeleteTag removes a tag; its product associations go with it
func (s *TagServiceImpl) DeleteTag(ctx context.Context, id int64) error {
	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info(ctx).Int64("tag_id", id).Msg("tag deleted")
	return nil
}

func (s *TagServiceImpl) SearchTags(ctx context.Context, term string) ([]*catalog.Tag, error) {
	return s.tags.Search(ctx, strings.TrimSpace(term))
}

// GetOrCreateTags resolves names to tags, creating the missing ones. The
// result follows the order of the normalised names.
func (s *TagServiceImpl) GetOrCreateTags(ctx context.Context, names []string) ([]*catalog.Tag, error) {
	names = catalog.NormalizeNames(names)
	if len(names) == 0 {
		return []*catalog.Tag{}, nil
	}

	for _, name := range names {
		if err := (&catalog.Tag{Name: name}).Validate(); err != nil {
			return nil, err
		}
	}

	result := make([]*catalog.Tag, 0, len(names))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.tags.GetByNames(ctx, names)
		if err != nil {
			return err
		}

		for _, name := range names {
			if tag, ok := existing[name]; ok {
				result = append(result, tag)
				continue
			}

			tag, err := s.createAutoTag(ctx, name)
			if err != nil {
				return err
			}
			result = append(result, tag)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}

	return result, nil
}

func (s *TagServiceImpl) createAutoTag(ctx context.Context, name string) (*catalog.Tag, error) {
	tag := &catalog.Tag{Name: name, Description: catalog.AutoTagDescription}

	created, err := s.tags.CreateIfAbsent(ctx, tag)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info(ctx).Int64("tag_id", tag.ID).Str("tag", name).Msg("tag auto-created")
	}
	return tag, nil
}
