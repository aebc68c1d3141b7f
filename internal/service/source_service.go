package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/subeero/mangapipe/internal/ingest"
	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
	"github.com/subeero/mangapipe/internal/repo"
)

type SourceService struct {
	sources *repo.SourceRepo
	fetcher *ingest.Fetcher
}

func NewSourceService(sources *repo.SourceRepo, fetcher *ingest.Fetcher) *SourceService {
	return &SourceService{sources: sources, fetcher: fetcher}
}

type SourceInput struct {
	Name    string             `json:"name"`
	BaseURL string             `json:"base_url"`
	Kind    string             `json:"kind"`
	Active  *bool              `json:"active"`
	Config  model.SourceConfig `json:"config"`
}

func (in *SourceInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", appErr.ErrInvalid)
	}
	u, err := url.Parse(in.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute url", appErr.ErrInvalid)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base_url scheme must be http or https", appErr.ErrInvalid)
	}
	switch in.Kind {
	case model.SourceKindAPI, model.SourceKindScraping:
	default:
		return fmt.Errorf("%w: unknown source kind %q", appErr.ErrInvalid, in.Kind)
	}
	if in.Config.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must be >= 0", appErr.ErrInvalid)
	}
	return nil
}

func (s *SourceService) Create(ctx context.Context, in *SourceInput) (*model.Source, error) {
	if in.Kind == "" {
		in.Kind = model.SourceKindAPI
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	src := &model.Source{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(in.Name),
		BaseURL: in.BaseURL,
		Kind:    in.Kind,
		Active:  true,
		Config:  in.Config,
		Ctime:   now,
		Mtime:   now,
	}
	if in.Active != nil {
		src.Active = *in.Active
	}
	if err := s.sources.Create(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *SourceService) Update(ctx context.Context, id string, in *SourceInput) (*model.Source, error) {
	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		src.Name = strings.TrimSpace(in.Name)
	}
	if in.BaseURL != "" {
		src.BaseURL = in.BaseURL
	}
	if in.Kind != "" {
		src.Kind = in.Kind
	}
	if in.Active != nil {
		src.Active = *in.Active
	}
	src.Config = in.Config
	check := &SourceInput{Name: src.Name, BaseURL: src.BaseURL, Kind: src.Kind, Config: src.Config}
	if err := check.validate(); err != nil {
		return nil, err
	}
	src.Mtime = time.Now().Unix()
	if err := s.sources.Update(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *SourceService) Delete(ctx context.Context, id string) error {
	return s.sources.Delete(ctx, id)
}

func (s *SourceService) Get(ctx context.Context, id string) (*model.Source, error) {
	return s.sources.GetByID(ctx, id)
}

func (s *SourceService) List(ctx context.Context) ([]*model.Source, error) {
	return s.sources.List(ctx)
}

// Probe runs a dry fetch against the source without persisting anything, so
// an operator can verify credentials and reachability before the first sync.
func (s *SourceService) Probe(ctx context.Context, id string) (*ingest.ProbeResult, error) {
	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Probe(ctx, src), nil
}
