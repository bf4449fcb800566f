package events

import (
	"context"
	"errors"

	"github.com/serroba/eaziurl/internal/messaging"
	"github.com/serroba/eaziurl/internal/shortener"
	"go.uber.org/zap"
)

// Retitler stores a title for an existing link.
type Retitler interface {
	Retitle(ctx context.Context, principal shortener.PrincipalID, code shortener.Code, title string) (*shortener.UserLink, error)
}

// NewTitleHandler applies resolved titles to the principal's link.
// Events that can never succeed are marked permanent so they are dropped instead of redelivered.
func NewTitleHandler(service Retitler, logger *zap.Logger) messaging.Handler[TitleResolvedEvent] {
	return func(ctx context.Context, event *TitleResolvedEvent) error {
		link, err := service.Retitle(ctx,
			shortener.PrincipalID(event.Principal),
			shortener.Code(event.Code),
			event.Title,
		)

		switch {
		case err == nil:
			logger.Info("title applied",
				zap.String("code", string(link.Code)),
				zap.String("principal", string(link.Principal)),
			)

			return nil
		case errors.Is(err, shortener.ErrInvalidTitle), errors.Is(err, shortener.ErrNotFound):
			return messaging.Permanent(err)
		default:
			return err
		}
	}
}
