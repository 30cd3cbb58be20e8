// Package jobstore records relay jobs so clients can look them up after the
// request that created them returned.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/shirley959/amazon-final/internal/relay"
)

// ErrNotFound is returned by Get for unknown job ids.
var ErrNotFound = errors.New("jobstore: job not found")

// Record is a job plus the campaign bookkeeping around it.
type Record struct {
	Job        relay.Job `json:"job"`
	CampaignID string    `json:"campaign_id,omitempty"`
	Position   int       `json:"position"`
	AssetKey   string    `json:"asset_key,omitempty"`
	Title      string    `json:"title,omitempty"`
	Subtitle   string    `json:"subtitle,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists records. Save is an upsert keyed by Job.ID.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]Record, error)
}
