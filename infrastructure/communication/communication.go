package communication

import (
	"fmt"

	"github.com/slack-go/slack"
	"ropeaccess.com/crewtrack/config"
)

// Notifier posts operational messages. Slack implements it; tests swap in a recorder.
type Notifier interface {
	Info(message string) error
	Error(message string) error
}

type messagePoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Slack struct {
	client  messagePoster
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
}

func ConnectSlack(cfg *config.Config) *Slack {
	return NewSlack(cfg.SlackToken, SlackOption{InfoChannelID: cfg.SlackInfoChannel, ErrorChannelID: cfg.SlackErrChannel})
}

func NewSlack(token string, options SlackOption) *Slack {
	client := slack.New(token)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessage(
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(message string) error {
	return s.postMessage(s.options.InfoChannelID, message)
}

func (s *Slack) Error(message string) error {
	return s.postMessage(s.options.ErrorChannelID, message)
}
