package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/qepting91/postwatch/internal/digest"
	"github.com/qepting91/postwatch/internal/domain"
	"github.com/qepting91/postwatch/internal/notify"
	"github.com/qepting91/postwatch/internal/storage"
)

type DigestOptions struct {
	// DryRun prints the digest instead of sending it.
	DryRun bool
	// Latest sends the last run's snapshot instead of yesterday and today's new posts.
	Latest bool
}

// DigestReport says what a digest call did.
type DigestReport struct {
	Digest notify.Digest
	Empty  bool
	Sent   []string
}

// Digest collects the reporting window at now and hands it to every enabled
// channel. An empty window is not an error: nothing is sent.
func (a *App) Digest(ctx context.Context, now time.Time, opts DigestOptions) (DigestReport, error) {
	rep := DigestReport{Digest: notify.Digest{Day: domain.DayOf(now, a.loc), Latest: opts.Latest}}

	entries, err := a.digestEntries(now, opts.Latest)
	if errors.Is(err, domain.ErrNoDigestContent) {
		a.log.Info().Str("day", rep.Digest.Day.String()).Msg("no new posts in window, nothing to send")
		rep.Empty = true
		return rep, nil
	}
	if err != nil {
		return rep, err
	}
	rep.Digest.Entries = entries

	if opts.DryRun {
		printDigest(a.out, rep.Digest)
		return rep, nil
	}

	senders := a.senders
	if senders == nil {
		senders = a.defaultSenders()
	}
	if len(senders) == 0 {
		a.log.Info().Msg("no delivery channel enabled")
		return rep, nil
	}

	var errs []error
	for _, s := range senders {
		if err := s.Send(ctx, rep.Digest); err != nil {
			a.log.Error().Err(err).Str("channel", s.Name()).Msg("digest delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		a.log.Info().Str("channel", s.Name()).Int("posts", len(entries)).Msg("digest sent")
		rep.Sent = append(rep.Sent, s.Name())
	}
	return rep, errors.Join(errs...)
}

func (a *App) digestEntries(now time.Time, latest bool) ([]domain.Entry, error) {
	if !latest {
		return digest.NewSelector(a.buckets, a.loc).Select(now)
	}

	snap, err := storage.ReadSnapshot(a.cfg.SnapshotPath())
	if err != nil {
		return nil, err
	}
	entries := snap.Entries()
	if len(entries) == 0 {
		return nil, domain.ErrNoDigestContent
	}
	return entries, nil
}

// defaultSenders builds the channels that are both enabled and configured.
func (a *App) defaultSenders() []notify.Sender {
	var out []notify.Sender

	switch {
	case !a.cfg.EmailEnabled:
		a.log.Debug().Msg("email disabled")
	case !a.cfg.MailConfigured():
		a.log.Info().Msg("smtp credentials not set, skipping email")
	default:
		out = append(out, notify.NewMailer(notify.MailConfig{
			Host:     a.cfg.SMTPHost,
			Port:     a.cfg.SMTPPort,
			Username: a.cfg.SMTPUsername,
			Password: a.cfg.SMTPPassword,
			To:       a.cfg.MailTo,
			Site:     a.cfg.SiteURL,
		}))
	}

	switch {
	case !a.cfg.WechatEnabled:
		a.log.Debug().Msg("wechat disabled")
	case !a.cfg.WechatConfigured():
		a.log.Info().Msg("wx_worker_url or wx_token not set, skipping wechat")
	default:
		out = append(out, notify.NewWechat(a.cfg.WXWorkerURL, a.cfg.WXToken, a.cfg.SiteURL, a.cfg.FetchTimeout))
	}

	return out
}

func printDigest(w io.Writer, d notify.Digest) {
	fmt.Fprintf(w, "%s %s\n",
		color.New(color.FgCyan, color.Bold).Sprint(d.Subject()),
		color.New(color.FgHiBlack).Sprintf("(%d posts)", len(d.Entries)))
	for i, e := range d.Entries {
		src := ""
		if e.Source != "" {
			src = color.New(color.FgYellow).Sprintf("[%s] ", e.Source)
		}
		fmt.Fprintf(w, "%3d. %s%s\n     %s\n", i+1, src, e.Title, e.Link)
	}
}
