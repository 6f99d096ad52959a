package prometheus

type Sizer interface {
	GetBasketCount() (uint, error)
	GetRequestCount() (uint, error)
	GetConnectionCount() (uint, error)
}
