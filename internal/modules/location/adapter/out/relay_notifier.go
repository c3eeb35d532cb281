package out

import (
	"context"

	"geowatch/internal/modules/location/domain"
	locationdto "geowatch/internal/modules/location/dto"
	locationout "geowatch/internal/modules/location/port/out"
)

// AdvisoryRelay is a presentation layer that can show advisories and ask
// the user to pick an action.
type AdvisoryRelay interface {
	Show(ctx context.Context, advisory locationdto.Advisory)
	Ask(ctx context.Context, advisory locationdto.Advisory) string
}

// RelayNotifier hands advisories to a presentation layer.
type RelayNotifier struct {
	relay AdvisoryRelay
}

func NewRelayNotifier(relay AdvisoryRelay) *RelayNotifier {
	return &RelayNotifier{relay: relay}
}

var _ locationout.Notifier = (*RelayNotifier)(nil)

func (n *RelayNotifier) Notify(ctx context.Context, advisory domain.Advisory) {
	n.relay.Show(ctx, toAdvisoryDTO(advisory))
}

func (n *RelayNotifier) Choose(ctx context.Context, advisory domain.Advisory) string {
	return n.relay.Ask(ctx, toAdvisoryDTO(advisory))
}

func toAdvisoryDTO(advisory domain.Advisory) locationdto.Advisory {
	return locationdto.Advisory{
		Kind:    string(advisory.Kind),
		Title:   advisory.Title,
		Message: advisory.Message,
		Actions: append([]string(nil), advisory.Actions...),
	}
}
