package catalog

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOptionNotFound  = errors.New("option item not found")

	ErrFailedGetProduct = errors.New("failed to get product")
	ErrFailedGetOption  = errors.New("failed to get option item")
	ErrFailedSetStock   = errors.New("failed to update stock")
)
