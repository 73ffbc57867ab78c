package services

import (
	"context"

	"github.com/zingsurvey/payment-gateway/pkg/pg"
)

type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

// Get reports whether both database connections answer a ping.
func (s *HealthService) Get() error {
	ctx := context.Background()

	readDB, err := s.db.Read(ctx).DB()
	if err != nil {
		return err
	}
	if err := readDB.PingContext(ctx); err != nil {
		return err
	}

	writeDB, err := s.db.Write(ctx).DB()
	if err != nil {
		return err
	}
	return writeDB.PingContext(ctx)
}
