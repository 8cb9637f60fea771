package orders

import "context"

// Store persists orders and the rows they own. Lookups of a missing id return
// an apperr NotFound error.
type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertDetails(ctx context.Context, ds []Detail) error
	GetOrder(ctx context.Context, id string) (Order, error)
	OrderExists(ctx context.Context, id string) (bool, error)
	UpdateOrderStatus(ctx context.Context, id string, s Status) error
	DeleteOrder(ctx context.Context, id string) error
	DetailsByOrder(ctx context.Context, orderID string) ([]Detail, error)

	InsertTrack(ctx context.Context, t *Track) error
	UpdateTrack(ctx context.Context, t *Track) error
	GetTrack(ctx context.Context, id string) (Track, error)
	ListTracks(ctx context.Context) ([]Track, error)
	// TracksByOrder and TracksByStatus return the most recently updated first.
	TracksByOrder(ctx context.Context, orderID string) ([]Track, error)
	TracksByStatus(ctx context.Context, s Status) ([]Track, error)
}
