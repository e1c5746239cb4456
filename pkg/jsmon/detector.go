// Package jsmon tracks script resources across runs and raises events when
// their content changes. A changed script outranks a newly-seen one: the
// change is the more actionable signal.
package jsmon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"reconpipe/internal/models"
	"reconpipe/internal/notification"
	"reconpipe/pkg/logger"
)

const maxBodySize = 10 << 20 // scripts larger than 10MiB are truncated for hashing

// Store is the slice of the asset store the detector needs.
type Store interface {
	GetJSAsset(url string) (*models.JSAsset, error)
	InsertJSAsset(asset *models.JSAsset) error
	MarkJSAssetChanged(url, hash string, size int, checkedAt int64) error
}

// Report summarizes one detection pass.
type Report struct {
	Checked int
	New     int
	Changed int
}

type Detector struct {
	client   *http.Client
	store    Store
	notifier notification.Notifier
	logger   *logger.Logger
}

func NewDetector(store Store, notifier notification.Notifier) *Detector {
	return &Detector{
		client:   &http.Client{Timeout: 10 * time.Second},
		store:    store,
		notifier: notifier,
		logger:   logger.NewLogger(logrus.InfoLevel),
	}
}

// WithClient overrides the HTTP client, used by tests.
func (d *Detector) WithClient(client *http.Client) *Detector {
	d.client = client
	return d
}

// Check fetches every tracked URL, hashes the content and compares it to the
// stored hash. First sighting stores the asset and raises a "new" event;
// a differing hash updates the record in place, sets the sticky changed
// flag and raises a higher-severity "changed" event; an identical hash is a
// no-op. Fetch failures skip the URL without failing the pass.
func (d *Detector) Check(ctx context.Context, urls []string, scanID string) (Report, error) {
	report := Report{}

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		hash, size, err := d.fetchAndHash(ctx, url)
		if err != nil {
			d.logger.WithFields(logger.Fields{"url": url, "error": err}).Warn("Failed to fetch script")
			continue
		}
		report.Checked++

		stored, err := d.store.GetJSAsset(url)
		if err != nil {
			return report, fmt.Errorf("failed to load script asset %s: %w", url, err)
		}

		now := time.Now().Unix()

		switch {
		case stored == nil:
			asset := &models.JSAsset{
				URL:         url,
				Hash:        hash,
				Size:        size,
				LastChecked: now,
				ScanID:      scanID,
			}
			if err := d.store.InsertJSAsset(asset); err != nil {
				return report, fmt.Errorf("failed to store script asset %s: %w", url, err)
			}
			report.New++
			d.notify(notification.Event{
				Message:  fmt.Sprintf("New JS file found: %s", url),
				Severity: notification.SeverityLow,
				Details:  map[string]string{"url": url, "hash": hash},
			})

		case stored.Hash != hash:
			if err := d.store.MarkJSAssetChanged(url, hash, size, now); err != nil {
				return report, fmt.Errorf("failed to update script asset %s: %w", url, err)
			}
			report.Changed++
			d.notify(notification.Event{
				Message:  fmt.Sprintf("JS file changed: %s", url),
				Severity: notification.SeverityHigh,
				Details:  map[string]string{"url": url, "old_hash": stored.Hash, "new_hash": hash},
			})

		default:
			// Unchanged: no mutation, no event.
		}
	}

	return report, nil
}

func (d *Detector) fetchAndHash(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", 0, err
	}

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), len(body), nil
}

func (d *Detector) notify(event notification.Event) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Send(event); err != nil {
		d.logger.WithFields(logger.Fields{"error": err, "message": event.Message}).Error("Failed to deliver alert")
	}
}
