// Package services wires the catalog services together.
package services

import (
	"errors"

	"product-service/internal/config"
	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
	"product-service/internal/services/implementations"
)

// Container holds the application services and what they are built from
type Container struct {
	config *config.Config
	repos  *catalog.Repositories
	blobs  catalog.BlobStore
	logger *observability.Logger

	categoryService    catalog.CategoryService
	productService     catalog.ProductService
	tagService         catalog.TagService
	fileStorageService catalog.FileStorageService
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, repos *catalog.Repositories, blobs catalog.BlobStore, logger *observability.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if repos == nil || repos.Tx == nil {
		return nil, errors.New("repositories cannot be nil")
	}
	if blobs == nil {
		return nil, errors.New("blob store cannot be nil")
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	c := &Container{
		config: cfg,
		repos:  repos,
		blobs:  blobs,
		logger: logger,
	}
	c.initializeServices()

	logger.GetZerolog().Info().Msg("service container initialized")
	return c, nil
}

// initializeServices builds services in dependency order: tags, products, categories
func (c *Container) initializeServices() {
	log := c.logger.With("services")

	c.tagService = implementations.NewTagService(c.repos.Tags, c.repos.Tx, log)
	c.productService = implementations.NewProductService(c.repos, c.blobs, c.tagService, log)
	c.categoryService = implementations.NewCategoryService(c.repos.Categories, c.productService, c.repos.Tx, log)
	c.fileStorageService = implementations.NewFileStorageService(
		c.repos.Images,
		c.repos.Products,
		c.blobs,
		c.config.Storage.AllowedTypes,
		c.config.Storage.MaxFileSize,
		log,
	)
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) CategoryService() catalog.CategoryService {
	return c.categoryService
}

func (c *Container) ProductService() catalog.ProductService {
	return c.productService
}

func (c *Container) TagService() catalog.TagService {
	return c.tagService
}

func (c *Container) FileStorageService() catalog.FileStorageService {
	return c.fileStorageService
}
