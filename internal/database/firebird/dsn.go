package firebird

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/davidelias/django-firebird/internal/database"
	"github.com/davidelias/django-firebird/internal/errs"
)

const (
	driverName            = "firebirdsql"
	defaultHost           = "localhost"
	defaultPort           = 3050
	defaultConnectTimeout = 10 * time.Second

	// optTimeout is read locally as the connect timeout and not sent to the driver.
	optTimeout = "timeout"
)

// buildDSN renders cfg in the firebirdsql form
// user:password@host:port/database?charset=...&option=...
func buildDSN(cfg *database.Config) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	q := url.Values{}
	q.Set("charset", cfg.Charset())
	keys := lo.Keys(cfg.Options)
	slices.Sort(keys)
	for _, k := range keys {
		if k == "charset" || k == optTimeout {
			continue
		}
		q.Set(k, cfg.Options[k])
	}

	return fmt.Sprintf("%s:%s@%s:%d/%s?%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		host, port, cfg.Database, q.Encode())
}

// connectTimeout reads the timeout option as seconds or a Go duration.
func connectTimeout(cfg *database.Config) (time.Duration, error) {
	raw := strings.TrimSpace(cfg.Options[optTimeout])
	if raw == "" {
		return defaultConnectTimeout, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errs.Newf(errs.ErrKindConfiguration, "invalid timeout option %q", raw)
	}
	return d, nil
}
