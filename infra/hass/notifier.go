package hass

import (
	"context"
	"fmt"
	"strings"
)

// ServiceCaller is the part of the API client the notifier needs.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

// Notifier delivers notifications through a Home Assistant notify service.
type Notifier struct {
	caller ServiceCaller
}

// NewNotifier wraps the given client.
func NewNotifier(caller ServiceCaller) *Notifier {
	return &Notifier{caller: caller}
}

// Send calls the service, e.g. "notify.mobile_app", with title and message.
func (n *Notifier) Send(ctx context.Context, service, title, message string) error {
	domain, svc, ok := strings.Cut(service, ".")
	if !ok {
		return fmt.Errorf("invalid notify service %q", service)
	}
	return n.caller.CallService(ctx, domain, svc, map[string]any{
		"title":   title,
		"message": message,
	})
}
