package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

// LogSink writes the notification to the log. It always succeeds and is
// meant to sit last in a Dispatcher.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, to models.Member, msg Message) error {
	s.log.Info("📨 notification",
		zap.String("member_id", to.ID),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.String("link", msg.Link),
	)
	return nil
}
