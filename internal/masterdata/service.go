package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/almacen-erp/almacen-erp/internal/money"
)

// Repository defines data access for masterdata.
type Repository interface {
	CreateProduct(ctx context.Context, p Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	ListProductsBelowMinStock(ctx context.Context) ([]Product, error)

	CreateClient(ctx context.Context, c Client) (int64, error)
	GetClient(ctx context.Context, id int64) (*Client, error)
	ListClients(ctx context.Context, filter ListFilter) ([]Client, int, error)

	CreateProvider(ctx context.Context, p Provider) (int64, error)
	GetProvider(ctx context.Context, id int64) (*Provider, error)
	ListProviders(ctx context.Context, filter ListFilter) ([]Provider, int, error)
}

// Service handles masterdata business logic.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateProduct validates and persists a new catalog entry.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if !money.IsPositive(req.UnitPrice) {
		return nil, fmt.Errorf("masterdata: unit price must be positive")
	}
	if !req.UnitPrice.Equal(money.Round(req.UnitPrice)) {
		return nil, fmt.Errorf("masterdata: unit price must be expressed in minor units")
	}
	now := time.Now().UTC()
	p := Product{
		Code:      req.Code,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

// GetProduct fetches a product.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct applies partial catalog edits. Stock is never edited here.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.UnitPrice != nil {
		if !money.IsPositive(*req.UnitPrice) {
			return nil, fmt.Errorf("masterdata: unit price must be positive")
		}
		p.UnitPrice = *req.UnitPrice
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProduct(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns a catalog page.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter)
}

// ListProductsBelowMinStock reports products at or below their threshold.
func (s *Service) ListProductsBelowMinStock(ctx context.Context) ([]Product, error) {
	return s.repo.ListProductsBelowMinStock(ctx)
}

// CreateClient persists a new client.
func (s *Service) CreateClient(ctx context.Context, req CreateClientRequest) (*Client, error) {
	now := time.Now().UTC()
	c := Client{
		Name:      req.Name,
		Document:  req.Document,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.repo.CreateClient(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return &c, nil
}

// GetClient fetches a client.
func (s *Service) GetClient(ctx context.Context, id int64) (*Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns a client page.
func (s *Service) ListClients(ctx context.Context, filter ListFilter) ([]Client, int, error) {
	return s.repo.ListClients(ctx, filter)
}

// CreateProvider persists a new provider.
func (s *Service) CreateProvider(ctx context.Context, req CreateProviderRequest) (*Provider, error) {
	now := time.Now().UTC()
	p := Provider{
		Name:      req.Name,
		Company:   req.Company,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.repo.CreateProvider(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

// GetProvider fetches a provider.
func (s *Service) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

// ListProviders returns a provider page.
func (s *Service) ListProviders(ctx context.Context, filter ListFilter) ([]Provider, int, error) {
	return s.repo.ListProviders(ctx, filter)
}
