package shipping

import (
	"context"

	"github.com/antonminaichev/dermamart/internal/types/shipping"
)

type PartnerRepository interface {
	CreatePartner(ctx context.Context, p *shipping.Partner) error
	GetPartner(ctx context.Context, id string) (*shipping.Partner, error)
	ListPartners(ctx context.Context) ([]shipping.Partner, error)
	UpdatePartner(ctx context.Context, p *shipping.Partner) error
	DeletePartner(ctx context.Context, id string) error
}
