// Package opgg looks up a player's recent K/D on op.gg and stores it in the
// roster. The value is roster metadata and plays no part in scoring.
package opgg

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/roster"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

	// kdSelector is the "recent matches" K/D tile on a PUBG profile page.
	kdSelector = "div.recent-matches__stat-value.recent-matches__stat-value--good"
)

var (
	// ErrSkipped is returned for blank or wildcard nicknames.
	ErrSkipped = errors.New("nickname skipped")
	// ErrNotFound is returned when the profile page has no K/D value.
	ErrNotFound = errors.New("k/d not found")
)

// Client scrapes op.gg profile pages. Requests are paced by a limiter so a
// full roster refresh does not get the client blocked.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a client issuing at most one request per interval. A zero
// interval disables pacing.
func New(baseURL string, interval, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// KD returns the recent K/D shown on nick's profile. Decimal commas are
// accepted.
func (c *Client) KD(ctx context.Context, nick string) (float64, error) {
	nick = strings.TrimSpace(nick)
	if !roster.ValidName(nick) {
		return 0, ErrSkipped
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "wait for rate limiter")
	}

	profile := c.baseURL + "/" + url.PathEscape(nick)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profile, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "build request for %s", nick)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "GET %s", profile)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Newf("GET %s: HTTP %d", profile, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, errors.Wrapf(err, "parse profile of %s", nick)
	}
	text := strings.TrimSpace(doc.Find(kdSelector).First().Text())
	if text == "" {
		return 0, errors.Wrapf(ErrNotFound, "%s", nick)
	}
	kd, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrNotFound, "%s: unreadable value %q", nick, text)
	}
	return kd, nil
}

// Summary counts the outcome of a roster refresh.
type Summary struct {
	Updated int
	Skipped int
	Failed  int
}

// Refresh looks up every roster player in order and records the K/D values
// it finds in idx. A failed lookup keeps the player's previous value. Only
// context cancellation stops the refresh early.
func (c *Client) Refresh(ctx context.Context, idx *roster.Index, log *logging.Logger) (Summary, error) {
	if log == nil {
		log = logging.Default()
	}
	var sum Summary
	for _, team := range idx.Teams() {
		log.Info("refreshing team", "team", team.Name)
		for _, p := range team.Players {
			kd, err := c.KD(ctx, p.Name)
			switch {
			case err == nil:
				idx.SetKD(p.Name, kd)
				sum.Updated++
				log.Debug("k/d updated", "player", p.Name, "kd", kd)
			case errors.Is(err, ErrSkipped):
				sum.Skipped++
			case ctx.Err() != nil:
				return sum, ctx.Err()
			default:
				sum.Failed++
				log.Warn("k/d lookup failed", "player", p.Name, "error", err)
			}
		}
	}
	return sum, nil
}
