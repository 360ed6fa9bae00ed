package avinor

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/flightwatch/pkg/logger"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultBaseURL is the public Avinor flight information feed
	DefaultBaseURL = "https://asrv.avinor.no/XmlFeed/v1.0"

	// Request window relative to now, in hours
	TimeFromHours = 4
	TimeToHours   = 24
)

// ErrUnexpectedStatus is returned when the feed answers with a non-200 status
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Client fetches flight records from the Avinor XML feed
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new feed client. A zero timeout leaves the HTTP client
// unbounded; callers are expected to pass a deadline through the context.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("avinor-client"),
	}
}

// FeedURL builds the request URL for the given airport
func (c *Client) FeedURL(airport string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed base URL %q: %w", c.baseURL, err)
	}

	q := u.Query()
	q.Set("airport", airport)
	q.Set("TimeFrom", strconv.Itoa(TimeFromHours))
	q.Set("TimeTo", strconv.Itoa(TimeToHours))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// FetchFlights retrieves and decodes the feed for the given airport
func (c *Client) FetchFlights(ctx context.Context, airport string) (*Feed, error) {
	feedURL, err := c.FeedURL(airport)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating feed request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request to flight feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	feed, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Flight feed fetched",
		logger.String("airport", airport),
		logger.Int("flights", len(feed.Flights)),
		logger.Duration("duration", time.Since(start)))

	return feed, nil
}

// Decode parses a feed document. A document without <flights> or without any
// <flight> element decodes to a feed with zero flights.
func Decode(r io.Reader) (*Feed, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc xmlAirport
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("error decoding flight feed: %w", err)
	}

	feed := &Feed{Airport: doc.Name}
	if doc.Flights == nil {
		return feed, nil
	}

	feed.LastUpdate = doc.Flights.LastUpdate
	feed.Flights = make([]Flight, 0, len(doc.Flights.Flight))
	for _, f := range doc.Flights.Flight {
		feed.Flights = append(feed.Flights, f.toFlight())
	}

	return feed, nil
}

// charsetReader handles the Latin-1 encodings the feed declares
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "iso8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "utf-8", "utf8", "us-ascii":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported feed charset: %s", label)
	}
}
