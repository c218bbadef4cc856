// Package notify delivers run reports to a Telegram chat via the bot API.
// Notification is best-effort: a run's outcome never depends on whether the
// message got through.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds the bot credentials. Both fields empty means notifications
// are disabled.
type Config struct {
	BotToken string        `yaml:"bot_token"`
	ChatID   string        `yaml:"chat_id"`
	APIBase  string        `yaml:"api_base"` // override for tests
	Timeout  time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.APIBase == "" {
		c.APIBase = "https://api.telegram.org"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Report is the run outcome a notifier renders. It is deliberately flat so
// callers can fill it from whatever run representation they hold.
type Report struct {
	RunID         string
	Date          string
	Stage         string
	Errors        []string
	Warnings      []string
	Checked       int
	Updated       int
	SoftErrors    int
	SourceErrors  int
	PresidentNew  int
	CabinetNew    int
	VoteDelta     int
	StatusChanges int
}

// Notifier sends formatted reports to one chat.
type Notifier struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// New creates a Notifier. Use Enabled to check whether credentials were
// actually configured before relying on delivery.
func New(cfg Config, opts ...Option) *Notifier {
	cfg.defaults()
	n := &Notifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Enabled reports whether both credentials are present.
func (n *Notifier) Enabled() bool {
	return n.config.BotToken != "" && n.config.ChatID != ""
}

// Failure sends the hard-failure report: which stage broke, the validation
// errors, and the partial run stats. Missing credentials log a warning and
// return nil.
func (n *Notifier) Failure(ctx context.Context, rep Report) error {
	if !n.Enabled() {
		n.logger.Warn("notify: credentials not configured, skipping failure report")
		return nil
	}
	return n.send(ctx, formatFailure(rep))
}

// Success sends the short end-of-run summary.
func (n *Notifier) Success(ctx context.Context, rep Report) error {
	if !n.Enabled() {
		n.logger.Warn("notify: credentials not configured, skipping success report")
		return nil
	}
	return n.send(ctx, formatSuccess(rep))
}

func formatFailure(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Petition sync FAILED\nrun %s · %s\nstage: %s\n", rep.RunID, rep.Date, rep.Stage)
	if len(rep.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range rep.Errors {
			fmt.Fprintf(&b, "• %s\n", e)
		}
	}
	if len(rep.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "• %s\n", w)
		}
	}
	fmt.Fprintf(&b, "\nchecked %d, updated %d, soft errors %d, vote delta %+d",
		rep.Checked, rep.Updated, rep.SoftErrors, rep.VoteDelta)
	if rep.SourceErrors > 0 {
		fmt.Fprintf(&b, "\nsource failures: %d", rep.SourceErrors)
	}
	return b.String()
}

func formatSuccess(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Petition sync done\nrun %s · %s\n", rep.RunID, rep.Date)
	fmt.Fprintf(&b, "new: %d president / %d cabinet\n", rep.PresidentNew, rep.CabinetNew)
	fmt.Fprintf(&b, "vote delta %+d, status changes %d", rep.VoteDelta, rep.StatusChanges)
	if rep.SoftErrors > 0 {
		fmt.Fprintf(&b, "\nsoft errors: %d of %d checked", rep.SoftErrors, rep.Checked)
	}
	return b.String()
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: n.config.ChatID, Text: text})
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.config.APIBase, n.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()

	var tg sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&tg); err != nil {
		return fmt.Errorf("notify: decode response: %w", err)
	}
	if !tg.OK {
		return fmt.Errorf("notify: telegram refused message: %s", tg.Description)
	}
	n.logger.Info("notification sent", "chat_id", n.config.ChatID)
	return nil
}
