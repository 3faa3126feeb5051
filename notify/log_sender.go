package notify

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogSender implements MessageSender by writing messages to the log. It is
// the default sender when no messaging service is wired in.
type LogSender struct {
	logger *logrus.Entry
}

// NewLogSender ...
func NewLogSender(logger *logrus.Entry) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements the MessageSender interface.
func (s *LogSender) Send(userID uuid.UUID, message *Message) error {
	s.logger.WithFields(logrus.Fields{
		"user":  userID,
		"title": message.Title,
	}).Info(message.Body)
	return nil
}
