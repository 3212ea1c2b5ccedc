// Package dto provides the request and response bodies of the HTTP API.
package dto

// IDResponse is returned by creations that only echo the new id.
type IDResponse struct {
	ID int64 `json:"id"`
}

// ListQuery holds the common store-scoped list parameters.
type ListQuery struct {
	StoreID int64  `form:"store_id" binding:"required,min=1"`
	Status  string `form:"status"`
	Limit   int    `form:"limit" binding:"min=0,max=500"`
	Offset  int    `form:"offset" binding:"min=0"`
}

// StoreQuery selects one store.
type StoreQuery struct {
	StoreID int64 `form:"store_id" binding:"required,min=1"`
}
