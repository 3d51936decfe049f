package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallwares/backoffice/internal/domain"
	"github.com/smallwares/backoffice/internal/repository"
)

const (
	maxProductNameLength        = 255
	maxProductDescriptionLength = 2000
)

// ProductService owns catalog record CRUD.
type ProductService struct {
	products repository.ProductRepository
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewProductService wires dependencies.
func NewProductService(products repository.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		logger:   logger,
		tracer:   otel.Tracer("github.com/smallwares/backoffice/internal/service"),
	}
}

// ProductInput is the allow-listed field set for create and update. Client
// input never reaches protected fields (id, timestamps) through it.
type ProductInput struct {
	Name        string
	Description string
	Tags        []string
	Price       float64
}

// Create validates and persists a new product.
func (s *ProductService) Create(ctx context.Context, input ProductInput) (ProductView, error) {
	ctx, span := s.startSpan(ctx, "ProductService.Create")
	defer span.End()

	if err := validateProduct(input); err != nil {
		return ProductView{}, err
	}

	created, err := s.products.Create(ctx, domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Tags:        cleanTags(input.Tags),
		Price:       input.Price,
	})
	if err != nil {
		span.RecordError(err)
		return ProductView{}, s.internal("create product", err)
	}
	return newProductView(created), nil
}

// Get loads one product by id.
func (s *ProductService) Get(ctx context.Context, id string) (ProductView, error) {
	ctx, span := s.startSpan(ctx, "ProductService.Get")
	defer span.End()

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ProductView{}, errNotFound("Product not found.")
		}
		span.RecordError(err)
		return ProductView{}, s.internal("get product", err)
	}
	return newProductView(product), nil
}

// List returns all products, newest first.
func (s *ProductService) List(ctx context.Context) ([]ProductView, error) {
	ctx, span := s.startSpan(ctx, "ProductService.List")
	defer span.End()

	products, err := s.products.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, s.internal("list products", err)
	}

	views := make([]ProductView, 0, len(products))
	for _, product := range products {
		views = append(views, newProductView(product))
	}
	return views, nil
}

// Update replaces the mutable fields of an existing product.
func (s *ProductService) Update(ctx context.Context, id string, input ProductInput) (ProductView, error) {
	ctx, span := s.startSpan(ctx, "ProductService.Update")
	defer span.End()

	if err := validateProduct(input); err != nil {
		return ProductView{}, err
	}

	updated, err := s.products.Update(ctx, domain.Product{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Tags:        cleanTags(input.Tags),
		Price:       input.Price,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ProductView{}, errNotFound("Product not found.")
		}
		span.RecordError(err)
		return ProductView{}, s.internal("update product", err)
	}
	return newProductView(updated), nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "ProductService.Delete")
	defer span.End()

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound("Product not found.")
		}
		span.RecordError(err)
		return s.internal("delete product", err)
	}
	return nil
}

func (s *ProductService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *ProductService) internal(op string, err error) error {
	logger := s.logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Error("product service failure", zap.String("op", op), zap.Error(err))
	return errInternal()
}

func validateProduct(input ProductInput) error {
	fields := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = "Name is required."
	} else if len(name) > maxProductNameLength {
		fields["name"] = fmt.Sprintf("Name must be at most %d characters.", maxProductNameLength)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		fields["description"] = "Description is required."
	} else if len(description) > maxProductDescriptionLength {
		fields["description"] = fmt.Sprintf("Description must be at most %d characters.", maxProductDescriptionLength)
	}
	if input.Price < 0 {
		fields["price"] = "Price must not be negative."
	}
	if len(fields) > 0 {
		return errValidation(fields)
	}
	return nil
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
