package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chatwarden/warden/platform"
)

type SlackNotifier struct {
	SlackWebhookURL string
}

func (n *SlackNotifier) SendActionAlert(ctx context.Context, action string, msg *platform.Message, tags []string, score int) error {
	return n.sendSlackMsg(ctx, alertActionBody(action, msg, tags, score))
}

func (n *SlackNotifier) SendRaidAlert(ctx context.Context, communityID string, joinCount int, slowmodeSec int) error {
	return n.sendSlackMsg(ctx, alertRaidBody(communityID, joinCount, slowmodeSec))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
