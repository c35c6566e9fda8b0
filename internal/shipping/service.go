package shipping

import (
	"context"
	"time"

	"github.com/antonminaichev/dermamart/internal/types/shipping"
	"github.com/google/uuid"
)

type Service struct {
	repo PartnerRepository
}

func NewService(repo PartnerRepository) *Service {
	return &Service{repo: repo}
}

type Input struct {
	Name    string
	Phone   string
	Address string
}

func (s *Service) Create(ctx context.Context, in Input) (*shipping.Partner, error) {
	now := time.Now().UTC()
	p := &shipping.Partner{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Phone:     in.Phone,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePartner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*shipping.Partner, error) {
	return s.repo.GetPartner(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]shipping.Partner, error) {
	return s.repo.ListPartners(ctx)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*shipping.Partner, error) {
	p, err := s.repo.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Phone = in.Phone
	p.Address = in.Address
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdatePartner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeletePartner(ctx, id)
}
