package cloud

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// Listener follows the change channel written by PostgresClient and hands
// each changed collection name to onChange. After a reconnect it calls
// onChange with no names, since notifications may have been missed.
type Listener struct {
	dsn      string
	channel  string
	onChange func(collections ...string)
	log      *zap.Logger
}

// NewListener prepares a listener; Run starts it
func NewListener(dsn, channel string, onChange func(collections ...string), log *zap.Logger) *Listener {
	return &Listener{
		dsn:      dsn,
		channel:  channel,
		onChange: onChange,
		log:      log.With(zap.String("channel", channel)),
	}
}

// Run listens until ctx is cancelled, reconnecting with backoff
func (l *Listener) Run(ctx context.Context) {
	delay := minReconnectDelay
	first := true
	for {
		err := l.listen(ctx, func() {
			delay = minReconnectDelay
			if !first {
				l.onChange()
			}
			first = false
		})
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("Change listener disconnected", zap.Error(err), zap.Duration("retry_in", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (l *Listener) listen(ctx context.Context, connected func()) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	l.log.Info("Listening for cloud changes")
	connected()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if notification.Payload == "" {
			l.onChange()
			continue
		}
		l.onChange(notification.Payload)
	}
}
