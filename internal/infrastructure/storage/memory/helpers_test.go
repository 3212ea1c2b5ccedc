package memory

import (
	"time"

	"magasin/internal/domain/purchasing/request"
)

func requestFixture() request.PurchaseRequest {
	return request.PurchaseRequest{
		StoreID:   1,
		Lines:     []request.Line{{ProductID: 4, Quantity: 2}},
		Status:    request.StatusApproved,
		CreatedAt: time.Now(),
	}
}
