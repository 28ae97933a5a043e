package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hie/bridge/internal/domain/exchange"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	if e.OID == "" {
		return fmt.Errorf("oid is required")
	}
	if e.HomeCommunityID == "" {
		e.HomeCommunityID = e.OID
	}
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByOID(ctx context.Context, oid string) (*Entry, error) {
	return s.repo.GetByOID(ctx, oid)
}

func (s *Service) Update(ctx context.Context, e *Entry) error {
	if e.OID == "" {
		return fmt.Errorf("oid is required")
	}
	return s.repo.Update(ctx, e)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Entry, error) {
	return s.repo.List(ctx, activeOnly)
}

// ResolveGateways maps directory OIDs to dispatch gateways for one
// transaction type, skipping entries that have no endpoint for it.
func (s *Service) ResolveGateways(ctx context.Context, tx exchange.TransactionType, oids []string) ([]exchange.Gateway, error) {
	gws := make([]exchange.Gateway, 0, len(oids))
	for _, oid := range oids {
		e, err := s.repo.GetByOID(ctx, oid)
		if err != nil {
			return nil, fmt.Errorf("resolving gateway %s: %w", oid, err)
		}
		gw := e.Gateway(tx)
		if gw.URL == "" {
			continue
		}
		gws = append(gws, gw)
	}
	return gws, nil
}
