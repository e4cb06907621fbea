package templates

import (
	"context"
	"fmt"

	"resume-tailor/internal/resume"
)

// Service validates and stores resume templates.
type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) Save(ctx context.Context, userID string, r resume.Resume) (Template, error) {
	if err := r.Validate(); err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrInvalidResume, err)
	}
	t := Template{UserID: userID, Resume: r}
	if err := s.Repo.Save(ctx, t); err != nil {
		return Template{}, err
	}
	return s.Repo.Get(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID string) (Template, error) {
	return s.Repo.Get(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.Repo.Delete(ctx, userID)
}
