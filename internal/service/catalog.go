package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CatalogService struct {
	Repo   ProductRepo
	Images ImageStore
	Index  SearchIndex
	Events events.Publisher
}

// NewProduct is the admin input for a catalog entry.
type NewProduct struct {
	Name        string
	Price       float64
	Description string

	ImageName string
	Image     io.Reader
}

type SearchResult struct {
	Products []models.Product
	Meta     util.Meta
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.FindProductByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *CatalogService) AddProduct(ctx context.Context, in NewProduct) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.add_product")

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return nil, fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}

	exists, err := s.Repo.ProductNameExists(ctx, name)
	if err != nil {
		l.Error("add_product_error", "status", 500, "reason", "name lookup failed", "error", err)
		return nil, err
	}
	if exists {
		l.Warn("add_product_error", "status", 409, "reason", "duplicate name", "name", name)
		return nil, fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}

	prod := models.Product{
		Name:        name,
		Price:       in.Price,
		Description: strings.TrimSpace(in.Description),
	}

	if in.Image != nil && s.Images != nil {
		p, err := s.Images.Save(in.ImageName, in.Image)
		if err != nil {
			l.Warn("add_product_error", "status", 400, "reason", "bad image", "error", err)
			return nil, fmt.Errorf("image: %v: %w", err, ErrValidation)
		}
		prod.ImagePath = p
	}

	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		s.dropImage(ctx, prod.ImagePath)
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("add_product_error", "status", 409, "reason", "duplicate name", "name", name)
			return nil, fmt.Errorf("%q: %w", name, ErrDuplicateName)
		}
		l.Error("add_product_error", "status", 500, "reason", "cannot create product", "error", err)
		return nil, err
	}

	metrics.ProductsCreatedTotal.Inc()
	s.index(ctx, &prod)
	publish(ctx, s.Events, events.TopicProducts, fmt.Sprint(prod.ID), events.ProductChanged{
		Type:      events.TypeProductCreated,
		ProductID: prod.ID,
		Name:      prod.Name,
		Price:     prod.Price,
		At:        time.Now().UTC(),
	})

	l.Info("product_created", "product_id", prod.ID, "name", prod.Name)
	return &prod, nil
}

// DeleteProduct removes a product by name. Carts and order rows that still
// point at it are left alone.
func (s *CatalogService) DeleteProduct(ctx context.Context, name string) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product")

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}

	prod, err := s.Repo.DeleteProductByName(ctx, name)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("delete_product_error", "status", 404, "reason", "no such product", "name", name)
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		l.Error("delete_product_error", "status", 500, "error", err)
		return nil, err
	}

	metrics.ProductsDeletedTotal.Inc()
	s.dropImage(ctx, prod.ImagePath)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, prod.ID); err != nil {
			l.Warn("search_unindex_failed", "product_id", prod.ID, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProducts, fmt.Sprint(prod.ID), events.ProductChanged{
		Type:      events.TypeProductDeleted,
		ProductID: prod.ID,
		Name:      prod.Name,
		At:        time.Now().UTC(),
	})

	l.Info("product_deleted", "product_id", prod.ID, "name", prod.Name)
	return prod, nil
}

// Search queries the full-text index when one is configured and falls back to
// a substring match in the database otherwise or when the index fails.
func (s *CatalogService) Search(ctx context.Context, q string, page, size int) (*SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("query is required: %w", ErrValidation)
	}
	from, limit := util.Calculate(page, size)

	if s.Index != nil {
		total, prods, err := s.Index.Search(ctx, q, from, limit)
		if err == nil {
			return &SearchResult{Products: prods, Meta: util.NewMeta(page, size, total)}, nil
		}
		l.Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}

	total, prods, err := s.Repo.SearchProducts(ctx, q, from, limit)
	if err != nil {
		l.Error("search_error", "status", 500, "error", err)
		return nil, err
	}
	return &SearchResult{Products: prods, Meta: util.NewMeta(page, size, total)}, nil
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) dropImage(ctx context.Context, path string) {
	if path == "" || s.Images == nil {
		return
	}
	if err := s.Images.Remove(path); err != nil {
		logging.FromContext(ctx).Warn("image_remove_failed", "path", path, "error", err)
	}
}
