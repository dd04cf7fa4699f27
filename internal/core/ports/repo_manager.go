package ports

import "github.com/SatoshiDNC/nostrmarket/internal/core/domain"

type RepoManager interface {
	Orders() domain.OrderRepository
	Products() domain.ProductRepository
	Stalls() domain.StallRepository
	Merchants() domain.MerchantRepository
	Close()
}
