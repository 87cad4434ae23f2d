package center

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	centers Repository
}

func NewService(centers Repository) *Service {
	return &Service{centers: centers}
}

func (s *Service) Create(ctx context.Context, c *Center) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Location = strings.TrimSpace(c.Location)
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.centers.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id int64) (*Center, error) {
	return s.centers.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, c *Center) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Location = strings.TrimSpace(c.Location)
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.centers.Update(ctx, c)
}

// Delete removes a center. The database restricts deletion while patients or
// users still reference it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.centers.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Center, error) {
	return s.centers.List(ctx)
}
