package command

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keshon/radio-domme/internal/metrics"
	"github.com/keshon/radio-domme/pkg/cmd"
)

// WithGuildOnly rejects invocations outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if v, ok := FromInvocation(inv); ok && v.GuildID() == "" {
				return v.Ephemeral("This command only works in a server.")
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs every invocation and counts it. m may be nil.
func WithCommandLogger(m *metrics.Metrics) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)
			m.RecordCommand(c.Name())

			ev := log.Info()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			ev = ev.Str("module", "command").Str("command", c.Name()).Dur("took", time.Since(start))
			if v, ok := FromInvocation(inv); ok {
				u := v.User()
				ev = ev.Str("guild_id", v.GuildID()).Str("user_id", u.ID).Str("user", u.Username)
			}
			ev.Msg("Command handled")
			return err
		})
	}
}
