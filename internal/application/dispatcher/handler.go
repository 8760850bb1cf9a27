package dispatcher

import (
	"context"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
)

// Handler reacts to a client event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo names a subscription. Handler is nil in ListHandlers results.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
