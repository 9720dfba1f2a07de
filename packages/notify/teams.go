package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TeamsNotifier posts an Adaptive Card to a Microsoft Teams webhook.
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

type TeamsOption func(*TeamsNotifier)

func WithTeamsHTTPClient(c *http.Client) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client = c
	}
}

func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string        `json:"type"`
	Size      string        `json:"size,omitempty"`
	Weight    string        `json:"weight,omitempty"`
	Text      string        `json:"text,omitempty"`
	Color     string        `json:"color,omitempty"`
	Wrap      bool          `json:"wrap,omitempty"`
	Columns   []teamsColumn `json:"columns,omitempty"`
	Spacing   string        `json:"spacing,omitempty"`
	Separator bool          `json:"separator,omitempty"`
}

type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

func stat(label string, value any, color string) teamsColumn {
	return teamsColumn{
		Type:  "Column",
		Width: "stretch",
		Items: []teamsBlock{
			{Type: "TextBlock", Text: "**" + label + "**", Wrap: true},
			{Type: "TextBlock", Text: fmt.Sprint(value), Color: color, Wrap: true},
		},
	}
}

func (t *TeamsNotifier) Notify(ctx context.Context, summary *Summary) error {
	color := "good"
	if !summary.Success() {
		color = "attention"
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Large", Weight: "Bolder", Text: headline(summary), Color: color},
		{
			Type:      "ColumnSet",
			Separator: true,
			Spacing:   "Medium",
			Columns: []teamsColumn{
				stat("Cases", summary.Total, ""),
				stat("Passed", summary.Passed, "good"),
				stat("Failed", summary.Failed, "attention"),
				stat("Duration", summary.Duration.Round(time.Millisecond), ""),
			},
		},
	}

	if summary.Environment != "" {
		body = append(body, teamsBlock{Type: "TextBlock", Text: "**Environment:** " + summary.Environment, Wrap: true})
	}

	if len(summary.FailedResults) > 0 {
		body = append(body, teamsBlock{Type: "TextBlock", Text: "**Failed cases:**", Separator: true, Spacing: "Medium"})
		for _, fc := range summary.FailedResults {
			body = append(body, teamsBlock{
				Type: "TextBlock",
				Text: fmt.Sprintf("- `%s` (%s): [%s] %s", fc.Name, fc.File, fc.Kind, fc.Message),
				Wrap: true,
			})
		}
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_pagespec - %s_", t.now().Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	return postJSON(ctx, t.client, t.webhookURL, teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}, http.StatusOK, http.StatusAccepted)
}
