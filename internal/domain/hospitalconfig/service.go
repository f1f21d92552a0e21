package hospitalconfig

import (
	"context"
	"fmt"
)

// Service reads and updates the hospital configuration. Live always hits the
// repository so that configuration changes apply to the next request; nothing
// here caches.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Live returns the current configuration.
func (s *Service) Live(ctx context.Context) (*HospitalConfig, error) {
	return s.repo.Live(ctx)
}

// Update validates and persists a new configuration. The id of the singleton
// row is preserved; callers cannot create a second row.
func (s *Service) Update(ctx context.Context, cfg *HospitalConfig) (*HospitalConfig, error) {
	if cfg.HospitalName == "" {
		return nil, fmt.Errorf("hospital_name is required")
	}
	switch cfg.OperatingMode {
	case ModeStandard, ModeEmergencyOnly:
	default:
		return nil, fmt.Errorf("unknown operating_mode %q", cfg.OperatingMode)
	}

	current, err := s.repo.Live(ctx)
	if err != nil {
		return nil, err
	}
	cfg.ID = current.ID

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return s.repo.Live(ctx)
}
