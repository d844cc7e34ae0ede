package davclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
)

type CalendarInfo struct {
	URI      string
	Name     string
	Color    string
	CTag     string
	ReadOnly bool
}

// DNSResolver interface for mocking DNS lookups in tests
type DNSResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Config holds configuration for FindCalendars
type Config struct {
	Resolver DNSResolver
	Client   *http.Client
	Logger   *slog.Logger
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Resolver: &net.Resolver{},
		Client:   http.DefaultClient,
	}
}

var (
	calendarType = props.Name{Space: xml.CalDAV, Local: "calendar"}
	writePrivs   = []props.Name{{Space: xml.DAV, Local: "write"}, {Space: xml.DAV, Local: "write-content"}, {Space: xml.DAV, Local: "all"}}
)

// find calendar list based on location, logic from thunderbird
func FindCalendars(ctx context.Context, location string, username string, password string) (calendars []CalendarInfo, err error) {
	return FindCalendarsWithConfig(ctx, location, username, password, DefaultConfig())
}

// FindCalendarsWithConfig allows injecting custom configuration for testing
func FindCalendarsWithConfig(ctx context.Context, location string, username string, password string, cfg *Config) ([]CalendarInfo, error) {
	if location == "" {
		return nil, fmt.Errorf("invalid URL")
	}
	baseURL, err := url.Parse(location)
	if err != nil || baseURL.Host == "" || baseURL.Scheme == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	wrapper, err := NewHTTPClient(location, username, password, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client wrapper: %w", err)
	}

	// Candidate locations, most specific first.
	var possibleLocations []string

	// 1. Direct location if a path is specified
	if baseURL.Path != "/" && baseURL.Path != "" {
		possibleLocations = append(possibleLocations, location)
	}

	// 2. DNS SRV, secure first
	if cfg.Resolver != nil {
		for _, prefix := range []string{"_caldavs._tcp.", "_caldav._tcp."} {
			host := prefix + baseURL.Hostname()
			_, addrs, err := cfg.Resolver.LookupSRV(ctx, "", "", host)
			if err != nil {
				continue
			}

			// TXT records may carry the context path
			var path string
			txts, _ := cfg.Resolver.LookupTXT(ctx, host)
			for _, txt := range txts {
				if strings.HasPrefix(txt, "path=") {
					path = strings.TrimPrefix(txt, "path=")
					break
				}
			}

			scheme := "http"
			if prefix == "_caldavs._tcp." {
				scheme = "https"
			}
			for _, addr := range addrs {
				possibleLocations = append(possibleLocations,
					fmt.Sprintf("%s://%s:%d%s", scheme, strings.TrimSuffix(addr.Target, "."), addr.Port, path))
			}
		}
	}

	// 3. well-known URL
	possibleLocations = append(possibleLocations, baseURL.JoinPath(".well-known", "caldav").String())

	// 4. root path
	possibleLocations = append(possibleLocations, baseURL.JoinPath("/").String())

	// Find the principal URL
	var principalURL string
	for _, possibleLocation := range possibleLocations {
		ms, err := wrapper.DoPROPFIND(ctx, possibleLocation, 0, props.CurrentUserPrincipalName)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				return nil, err
			}
			continue
		}
		if href := firstHref(ms, props.CurrentUserPrincipalName); href != "" {
			principalURL = resolve(possibleLocation, href)
			break
		}
	}
	if principalURL == "" {
		return nil, fmt.Errorf("could not find current-user-principal")
	}

	// Get calendar home from principal URL
	ms, err := wrapper.DoPROPFIND(ctx, principalURL, 0, props.CalendarHomeSetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar-home-set: %w", err)
	}
	home := firstHref(ms, props.CalendarHomeSetName)
	if home == "" {
		return nil, fmt.Errorf("no calendar-home-set found")
	}
	calendarHome := resolve(principalURL, home)

	// List calendars from calendar home
	ms, err = wrapper.DoPROPFIND(ctx, calendarHome, 1,
		props.ResourcetypeName,
		props.DisplayNameName,
		props.CalendarColorName,
		props.GetCTagName,
		props.CurrentUserPrivilegeSetName)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]CalendarInfo, 0, len(ms.Responses))
	for _, resp := range ms.Responses {
		rt, status, ok := resp.Prop(props.ResourcetypeName)
		if !ok || status != http.StatusOK || !xml.HasChild(rt, calendarType) {
			continue
		}
		calendars = append(calendars, CalendarInfo{
			URI:      resolve(calendarHome, resp.Href),
			Name:     propText(resp, props.DisplayNameName),
			Color:    propText(resp, props.CalendarColorName),
			CTag:     propText(resp, props.GetCTagName),
			ReadOnly: !canWrite(resp),
		})
	}
	return calendars, nil
}

// firstHref returns the href inside the first successful name property.
func firstHref(ms *xml.ParsedMultistatus, name props.Name) string {
	for _, resp := range ms.Responses {
		if prop, status, ok := resp.Prop(name); ok && status == http.StatusOK {
			if href := strings.TrimSpace(xml.Href(prop)); href != "" {
				return href
			}
		}
	}
	return ""
}

func propText(resp xml.ParsedResponse, name props.Name) string {
	if prop, status, ok := resp.Prop(name); ok && status == http.StatusOK {
		return strings.TrimSpace(prop.Text())
	}
	return ""
}

func canWrite(resp xml.ParsedResponse) bool {
	set, status, ok := resp.Prop(props.CurrentUserPrivilegeSetName)
	if !ok || status != http.StatusOK {
		return false
	}
	for _, priv := range set.ChildElements() {
		for _, name := range writePrivs {
			if xml.HasChild(priv, name) {
				return true
			}
		}
	}
	return false
}

// resolve turns a possibly relative href into an absolute URL.
func resolve(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
