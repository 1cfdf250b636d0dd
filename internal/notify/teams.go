package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/laptoptracker/laptop-tracker/internal/model"
	"github.com/laptoptracker/laptop-tracker/internal/webhook"
)

// Notifier delivers one replacement notification.
type Notifier interface {
	Notify(ctx context.Context, device model.Device) error
}

// MessageCard is the legacy Office 365 connector card accepted by Teams
// incoming webhooks.
type MessageCard struct {
	Type       string    `json:"@type"`
	Context    string    `json:"@context"`
	Summary    string    `json:"summary"`
	ThemeColor string    `json:"themeColor"`
	Title      string    `json:"title"`
	Sections   []Section `json:"sections"`
}

// Section is a MessageCard section.
type Section struct {
	ActivityTitle string `json:"activityTitle"`
	Facts         []Fact `json:"facts"`
	Markdown      bool   `json:"markdown"`
}

// Fact is a name/value row in a section.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReplacementCard builds the card announcing that a device needs replacement.
func ReplacementCard(d model.Device) MessageCard {
	return MessageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Summary:    "Device Replacement Needed",
		ThemeColor: "0076D7",
		Title:      "Device Needs Replacement",
		Sections: []Section{{
			ActivityTitle: fmt.Sprintf("💻 **%s** needs replacement!", d.DeviceName),
			Facts: []Fact{
				{Name: "User", Value: d.User.Name},
				{Name: "Model", Value: d.Model},
				{Name: "Serial", Value: d.SerialNumber},
				{Name: "First Enrollment", Value: d.FirstEnrollment},
			},
			Markdown: true,
		}},
	}
}

// TeamsNotifier posts replacement cards to a Teams incoming webhook.
type TeamsNotifier struct {
	url    string
	sender *webhook.Sender
	logger *slog.Logger
}

// NewTeamsNotifier creates a notifier for the webhook at url.
func NewTeamsNotifier(url string, sender *webhook.Sender, logger *slog.Logger) *TeamsNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamsNotifier{
		url:    url,
		sender: sender,
		logger: logger.With("component", "teams"),
	}
}

// Notify implements Notifier.
func (n *TeamsNotifier) Notify(ctx context.Context, d model.Device) error {
	payload, err := json.Marshal(ReplacementCard(d))
	if err != nil {
		return fmt.Errorf("encode message card: %w", err)
	}

	deliveryID, err := n.sender.Send(ctx, n.url, payload)
	if err != nil {
		return fmt.Errorf("send teams notification for %s: %w", d.SerialNumber, err)
	}

	n.logger.Info("replacement notification sent",
		"serial", d.SerialNumber,
		"device", d.DeviceName,
		"delivery_id", deliveryID,
		"host", webhook.ExtractHost(n.url),
	)
	return nil
}
