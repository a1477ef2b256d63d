package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/pageharvest/pageharvest/internal/common"
	"github.com/pageharvest/pageharvest/internal/repository"
)

// Notifier receives a digest of newly-dead workers. Delivery is
// fire-and-forget, best-effort.
type Notifier interface {
	NotifyDead(ctx context.Context, deadWorkers []string, stillOnline int) error
}

// NewNotifier returns an SMTP-backed notifier, or a disabled one when the
// credentials are absent (notifications off, everything else proceeds).
func NewNotifier(cfg common.NotifyConfig, log *slog.Logger) Notifier {
	if log == nil {
		log = slog.Default()
	}
	if !cfg.Enabled() {
		log.Warn("notification credentials missing, dead-worker digests disabled")
		return disabledNotifier{}
	}
	return &smtpNotifier{cfg: cfg, log: log}
}

type disabledNotifier struct{}

func (disabledNotifier) NotifyDead(context.Context, []string, int) error { return nil }

type smtpNotifier struct {
	cfg common.NotifyConfig
	log *slog.Logger
}

func (n *smtpNotifier) NotifyDead(ctx context.Context, deadWorkers []string, stillOnline int) error {
	body := digestBody(deadWorkers, stillOnline)
	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + n.cfg.To,
		"Subject: one or more workers are down",
		"",
		body,
	}, "\r\n")

	addr := net.JoinHostPort(n.cfg.SMTPHost, strconv.Itoa(n.cfg.SMTPPort))
	if err := n.send(ctx, addr, msg); err != nil {
		return err
	}
	n.log.Info("dead-worker digest sent", "dead", len(deadWorkers), "still_online", stillOnline)
	return nil
}

// send speaks SMTP over an implicit-TLS connection (port 465 style).
func (n *smtpNotifier) send(ctx context.Context, addr, msg string) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: n.cfg.SMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	client, err := smtp.NewClient(conn, n.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	auth := smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(n.cfg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// digestBody renders the digest. A negative stillOnline means the count could
// not be read; the count line is omitted rather than shown to a human.
func digestBody(deadWorkers []string, stillOnline int) string {
	var b strings.Builder
	if len(deadWorkers) == 1 {
		fmt.Fprintf(&b, "Worker %s is out of service.\n\n", deadWorkers[0])
	} else {
		fmt.Fprintf(&b, "%d workers are offline:\n\n", len(deadWorkers))
		for _, id := range deadWorkers {
			fmt.Fprintf(&b, "worker %s,\n", id)
		}
		b.WriteString("are out of service.\n\n")
	}
	if stillOnline >= 0 {
		fmt.Fprintf(&b, "There are %d workers left online.", stillOnline)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Reporter deduplicates dead-worker digests against the ids already reported
// during this dispatcher's lifetime. The history is process-local and resets
// on restart.
type Reporter struct {
	sink    Notifier
	workers repository.WorkerRepository
	history map[string]struct{}
	log     *slog.Logger
}

func NewReporter(sink Notifier, workers repository.WorkerRepository, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		sink:    sink,
		workers: workers,
		history: make(map[string]struct{}),
		log:     log,
	}
}

// Report emits one digest for the dead workers not yet seen, then records
// them. Delivery failure is logged and swallowed; it never aborts the
// dispatcher loop.
func (r *Reporter) Report(ctx context.Context, deadWorkers []string) {
	var fresh []string
	for _, id := range deadWorkers {
		if _, seen := r.history[id]; !seen {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return
	}

	stillOnline, err := r.workers.CountActive(ctx)
	if err != nil {
		r.log.Error("failed to count online workers for digest", "error", err)
		stillOnline = -1
	}
	if err := r.sink.NotifyDead(ctx, fresh, stillOnline); err != nil {
		r.log.Error("dead-worker digest delivery failed", "error", err)
	}
	for _, id := range fresh {
		r.history[id] = struct{}{}
	}
}
