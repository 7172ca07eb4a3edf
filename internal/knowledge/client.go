package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tunetalk/pkg/protocol"
)

// Artist is the primary entity record from the catalog service
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// Album is a related work record
type Album struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// RelatedArtist is a collaborator or similar-artist record
type RelatedArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ContextBundle is the snapshot of catalog facts fetched for one turn.
// Degraded marks a bundle substituted after a retrieval failure.
type ContextBundle struct {
	Artist   Artist          `json:"artist"`
	Albums   []Album         `json:"albums"`
	Related  []RelatedArtist `json:"related"`
	Degraded bool            `json:"degraded,omitempty"`
}

// Summary renders the bundle as prompt context for the generator
func (b *ContextBundle) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Artist: %s", b.Artist.Name)
	if len(b.Artist.Genres) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(b.Artist.Genres, ", "))
	}
	sb.WriteString("\n")

	if b.Artist.Summary != "" {
		fmt.Fprintf(&sb, "About: %s\n", b.Artist.Summary)
	}

	if len(b.Albums) > 0 {
		sb.WriteString("Albums:\n")
		for _, album := range b.Albums {
			if album.Year > 0 {
				fmt.Fprintf(&sb, "- %s (%d)\n", album.Title, album.Year)
			} else {
				fmt.Fprintf(&sb, "- %s\n", album.Title)
			}
		}
	}

	if len(b.Related) > 0 {
		names := make([]string, 0, len(b.Related))
		for _, rel := range b.Related {
			names = append(names, rel.Name)
		}
		fmt.Fprintf(&sb, "Related artists: %s\n", strings.Join(names, ", "))
	}

	if b.Degraded {
		sb.WriteString("(catalog lookup unavailable; answer from general knowledge)\n")
	}

	return sb.String()
}

// DefaultBundle is the degraded substitute used when retrieval fails: the
// primary entity as given, empty related lists, never nil.
func DefaultBundle(subject protocol.SubjectEntity) *ContextBundle {
	return &ContextBundle{
		Artist:   Artist{ID: subject.ID, Name: subject.Name},
		Albums:   []Album{},
		Related:  []RelatedArtist{},
		Degraded: true,
	}
}

// Config holds catalog client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultTimeout bounds each catalog call so a slow source cannot stall a
// conversation turn.
const DefaultTimeout = 5 * time.Second

// Client reads artist context from the external catalog service
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a catalog client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the context bundle for a subject entity. It never returns
// an error: any failure is logged and replaced with the default bundle so the
// calling turn proceeds with degraded context.
func (c *Client) Fetch(ctx context.Context, subject protocol.SubjectEntity) *ContextBundle {
	ref := subject.Ref()
	if ref == "" {
		log.Printf("[Knowledge] Empty subject reference, using default bundle")
		return DefaultBundle(subject)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var artist Artist
	if err := c.getJSON(ctx, "/api/artists/"+url.PathEscape(ref), &artist); err != nil {
		log.Printf("[Knowledge] Artist lookup failed for %q: %v", ref, err)
		return DefaultBundle(subject)
	}
	if artist.Name == "" {
		artist.Name = subject.Name
	}

	bundle := &ContextBundle{
		Artist:  artist,
		Albums:  []Album{},
		Related: []RelatedArtist{},
	}

	// Related lists are best-effort: a failure here degrades the bundle
	// partially instead of discarding the primary record.
	var albums []Album
	if err := c.getJSON(ctx, "/api/artists/"+url.PathEscape(ref)+"/albums", &albums); err != nil {
		log.Printf("[Knowledge] Album lookup failed for %q: %v", ref, err)
	} else {
		bundle.Albums = albums
	}

	var related []RelatedArtist
	if err := c.getJSON(ctx, "/api/artists/"+url.PathEscape(ref)+"/related", &related); err != nil {
		log.Printf("[Knowledge] Related-artist lookup failed for %q: %v", ref, err)
	} else {
		bundle.Related = related
	}

	return bundle
}

// Ping probes catalog availability for health reporting
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("catalog unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections to the catalog service
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
