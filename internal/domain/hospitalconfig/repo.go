package hospitalconfig

import "context"

// Repository provides access to the hospital configuration singleton.
type Repository interface {
	// Live returns the current configuration row.
	Live(ctx context.Context) (*HospitalConfig, error)
	// Update replaces the configuration row.
	Update(ctx context.Context, cfg *HospitalConfig) error
}
