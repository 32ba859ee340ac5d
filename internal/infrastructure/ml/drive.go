package ml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/schollz/progressbar/v3"

	"Auditorium/internal/ports"
)

const defaultDriveURL = "https://drive.google.com/uc"

// DriveFetcher downloads publicly shared Google Drive files.
type DriveFetcher struct {
	baseURL  string
	http     *http.Client
	progress bool
}

var _ ports.BlobFetcher = (*DriveFetcher)(nil)

// NewDriveFetcher creates a fetcher; an empty baseURL targets drive.google.com.
func NewDriveFetcher(baseURL string, timeout time.Duration, progress bool) *DriveFetcher {
	if baseURL == "" {
		baseURL = defaultDriveURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &DriveFetcher{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		progress: progress,
	}
}

// Fetch streams the file into dst, following the "can't scan for viruses"
// interstitial Drive serves for large files.
func (d *DriveFetcher) Fetch(ctx context.Context, id string, dst io.Writer) error {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return fmt.Errorf("invalid drive url %s: %w", d.baseURL, err)
	}
	q := u.Query()
	q.Set("export", "download")
	q.Set("id", id)
	u.RawQuery = q.Encode()

	resp, err := d.get(ctx, u.String())
	if err != nil {
		return err
	}

	if isHTML(resp) {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("parse drive page: %w", err)
		}

		next, err := confirmURL(doc, resp.Request.URL)
		if err != nil {
			return err
		}

		resp, err = d.get(ctx, next)
		if err != nil {
			return err
		}
		if isHTML(resp) {
			_ = resp.Body.Close()
			return errors.New("drive returned an HTML page instead of the file; check sharing settings")
		}
	}
	defer resp.Body.Close()

	var w io.Writer = dst
	if d.progress {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("downloading model"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		w = io.MultiWriter(dst, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("copy drive file: %w", err)
	}
	return nil
}

func (d *DriveFetcher) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "Auditorium/1.0")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("drive returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return resp, nil
}

func isHTML(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html")
}

// confirmURL extracts the real download link from the interstitial page.
func confirmURL(doc *goquery.Document, base *url.URL) (string, error) {
	if form := doc.Find("form#download-form").First(); form.Length() > 0 {
		action, _ := form.Attr("action")
		target, err := base.Parse(action)
		if err != nil {
			return "", fmt.Errorf("invalid download form action %q: %w", action, err)
		}

		q := target.Query()
		form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
			name, ok := input.Attr("name")
			if !ok || name == "" {
				return
			}
			value, _ := input.Attr("value")
			q.Set(name, value)
		})
		target.RawQuery = q.Encode()
		return target.String(), nil
	}

	if href, ok := doc.Find("a#uc-download-link").First().Attr("href"); ok {
		target, err := base.Parse(href)
		if err != nil {
			return "", fmt.Errorf("invalid download link %q: %w", href, err)
		}
		return target.String(), nil
	}

	return "", errors.New("drive page has no download form")
}
