package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/powerled/internal/events"
)

// registerEventRoutes registers the SSE stream of boot and LED events.
func (s *Server) registerEventRoutes() {
	if s.options.EventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time boot state, LED presentation and actuation failure events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"boot-state-changed":   events.BootStateChangedEvent{},
		"presentation-changed": events.PresentationChangedEvent{},
		"actuation-failed":     events.ActuationFailedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.BootStateChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.PresentationChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ActuationFailedEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Start every stream with the current presentation. A change that
		// lands between subscribing and the snapshot is already part of the
		// snapshot, so its first copy from the channel is skipped.
		var opening string
		if status, err := s.options.Status.Snapshot(); err == nil {
			opening = status.Presentation.String()
			if err := send.Data(events.PresentationChangedEvent{Presentation: opening}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if changed, ok := event.(events.PresentationChangedEvent); ok && opening != "" {
					duplicate := changed.Presentation == opening
					opening = ""
					if duplicate {
						continue
					}
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
