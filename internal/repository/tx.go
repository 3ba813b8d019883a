package repository

import "context"

// Repositories groups the repositories that share one unit of work.
type Repositories struct {
	Rides    RideRepository
	Events   RideEventRepository
	Promos   PromoRepository
	Payments PaymentRepository
}

// Transactor runs fn inside a transaction. The repositories handed to fn
// write through that transaction; returning an error rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
