package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	realtime "titletrack/internal/sync"
	"titletrack/pkg/logger"
	"titletrack/pkg/models"
)

const defaultTimeout = 60 * time.Second

type Store interface {
	Get(ctx context.Context, userID, id string) (*models.TitleRecord, error)
	ApplyRefresh(ctx context.Context, userID, id string, total int, imageURL string) (bool, error)
}

type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (models.TitleInfo, error)
}

type Publisher interface {
	Publish(ev realtime.TitleEvent)
}

// Service re-resolves stored titles from their source URL and raises the
// stored total when the source reports more. A stored total never shrinks.
type Service struct {
	Store    Store
	Resolver Resolver
	Hub      Publisher
	Timeout  time.Duration

	log zerolog.Logger
	wg  sync.WaitGroup
}

func NewService(store Store, resolver Resolver, hub Publisher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		Store:    store,
		Resolver: resolver,
		Hub:      hub,
		Timeout:  timeout,
		log:      logger.Component("refresh"),
	}
}

// Go runs Refresh in the background on its own context. The caller's
// request may finish long before the refresh does.
func (s *Service) Go(userID, titleID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		s.Refresh(ctx, userID, titleID)
	}()
}

// Wait blocks until every refresh started with Go has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Refresh never reports failure; errors are logged and the record is left
// as it was.
func (s *Service) Refresh(ctx context.Context, userID, titleID string) {
	l := s.log.With().Str("user", userID).Str("title_id", titleID).Logger()

	rec, err := s.Store.Get(ctx, userID, titleID)
	if err != nil {
		l.Warn().Err(err).Msg("load record")
		return
	}
	if rec == nil || rec.SourceURL == "" {
		return
	}

	info, err := s.Resolver.Resolve(ctx, rec.SourceURL)
	if err != nil {
		l.Info().Err(err).Str("url", rec.SourceURL).Msg("resolve failed, record unchanged")
		return
	}

	if info.Total <= rec.Total {
		l.Debug().Int("stored", rec.Total).Int("fresh", info.Total).Msg("no new entries")
		return
	}

	image := ""
	if info.ImageURL != "" && info.ImageURL != rec.ImageURL {
		image = info.ImageURL
	}

	ok, err := s.Store.ApplyRefresh(ctx, userID, titleID, info.Total, image)
	if err != nil {
		l.Warn().Err(err).Msg("apply refresh")
		return
	}
	if !ok {
		// deleted or raised by a concurrent refresh
		return
	}

	l.Info().Int("from", rec.Total).Int("to", info.Total).Msg("total raised")

	if s.Hub != nil {
		ev := realtime.TitleEvent{
			Type:     realtime.EventTitleRefresh,
			UserID:   userID,
			TitleID:  titleID,
			Title:    rec.Title,
			Total:    info.Total,
			Progress: rec.Progress,
			Status:   rec.Status,
			ImageURL: rec.ImageURL,
			At:       time.Now().UTC(),
		}
		if image != "" {
			ev.ImageURL = image
		}
		s.Hub.Publish(ev)
	}
}
