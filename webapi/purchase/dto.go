package purchase

import (
	"time"

	"github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/google/uuid"
)

// ItemInput is one cart line.
type ItemInput struct {
	ProductID string        `json:"productId" validate:"required,max=64"`
	Name      string        `json:"name" validate:"max=200"`
	Quantity  int           `json:"quantity" validate:"required,gt=0"`
	UnitPrice common.Amount `json:"unitPrice" swaggertype:"string" example:"7.50"`
}

// CheckoutInput is the body of POST /purchases.
type CheckoutInput struct {
	Items         []ItemInput   `json:"items" validate:"required,min=1,dive"`
	Total         common.Amount `json:"total" swaggertype:"string" example:"20.00"`
}

// ItemResponse is a stored cart line.
type ItemResponse struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Quantity  int           `json:"quantity"`
	UnitPrice common.Amount `json:"unitPrice" swaggertype:"string"`
}

// PurchaseResponse is a stored purchase.
type PurchaseResponse struct {
	ID            uuid.UUID      `json:"id"`
	AccountID     uuid.UUID      `json:"accountId"`
	EntryID       string         `json:"entryId"`
	Items         []ItemResponse `json:"items"`
	PaymentMethod string         `json:"paymentMethod"`
	Total         common.Amount  `json:"total" swaggertype:"string"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// CheckoutResponse adds the resulting balance to the purchase.
type CheckoutResponse struct {
	Purchase   PurchaseResponse `json:"purchase"`
	NewBalance common.Amount    `json:"newBalance" swaggertype:"string"`
}

func (in CheckoutInput) items() []purchase.Item {
	items := make([]purchase.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, purchase.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Decimal(),
		})
	}
	return items
}

func toPurchaseResponse(p *dto.PurchaseRead) PurchaseResponse {
	items := make([]ItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, ItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: common.NewAmount(it.UnitPrice),
		})
	}
	return PurchaseResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		EntryID:       p.EntryID,
		Items:         items,
		PaymentMethod: p.PaymentMethod,
		Total:         common.NewAmount(p.TotalAmount),
		CreatedAt:     p.CreatedAt,
	}
}
