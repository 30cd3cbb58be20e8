// Package campaign turns a product brief into a batch of generated marketing
// images. Items are resolved independently: one failed job never aborts the
// others.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/shirley959/amazon-final/internal/copywriter"
	"github.com/shirley959/amazon-final/internal/infra"
	"github.com/shirley959/amazon-final/internal/jobstore"
	"github.com/shirley959/amazon-final/internal/relay"
	"github.com/shirley959/amazon-final/internal/storage"
	"github.com/shirley959/amazon-final/pkg/zip"
)

var (
	ErrNotFound    = errors.New("campaign: not found")
	ErrNoAssets    = errors.New("campaign: no stored images")
	ErrNoProduct   = errors.New("campaign: product name is required")
	errNoGenerator = errors.New("campaign: generator is required")
)

const maxDownloadBytes = 32 << 20

// Generator is satisfied by *relay.Client.
type Generator interface {
	Generate(ctx context.Context, endpointPath string, req relay.GenerationRequest) (*relay.Job, error)
}

// Options wires a Service.
type Options struct {
	Generator   Generator
	Writer      copywriter.Writer
	Jobs        jobstore.Store
	Assets      *storage.FileStore
	HTTPClient  *http.Client
	ModelPath   string
	Concurrency int
	Logger      *infra.Logger
}

// Request starts one campaign.
type Request struct {
	Brief       copywriter.Brief
	SourceImage *relay.SourceImage
	Strength    float64
	Size        relay.ImageSize
	ModelPath   string
	Download    bool
}

// Item is the outcome of one concept.
type Item struct {
	Position  int             `json:"position"`
	JobID     string          `json:"job_id,omitempty"`
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle"`
	Prompt    string          `json:"prompt,omitempty"`
	Status    relay.JobStatus `json:"status"`
	ResultURL string          `json:"result_url,omitempty"`
	AssetKey  string          `json:"asset_key,omitempty"`
	ErrorKind relay.ErrorKind `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Report summarises a campaign run.
type Report struct {
	ID        string   `json:"id"`
	Provider  string   `json:"provider,omitempty"`
	Degraded  bool     `json:"degraded"`
	Issues    []string `json:"issues,omitempty"`
	Items     []Item   `json:"items"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

// Service runs campaigns on a bounded worker pool.
type Service struct {
	gen         Generator
	writer      copywriter.Writer
	jobs        jobstore.Store
	assets      *storage.FileStore
	httpClient  *http.Client
	modelPath   string
	concurrency int
	logger      *infra.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Generator == nil {
		return nil, errNoGenerator
	}
	writer := opts.Writer
	if writer == nil {
		writer = copywriter.NewStaticWriter()
	}
	jobs := opts.Jobs
	if jobs == nil {
		jobs = jobstore.NewMemoryStore()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.Discard()
	}
	return &Service{
		gen:         opts.Generator,
		writer:      writer,
		jobs:        jobs,
		assets:      opts.Assets,
		httpClient:  httpClient,
		modelPath:   opts.ModelPath,
		concurrency: max(1, opts.Concurrency),
		logger:      logger,
	}, nil
}

// Run drafts concepts and generates one image per concept. The report is
// returned even when ctx is canceled part way, together with ctx.Err().
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	if strings.TrimSpace(req.Brief.ProductName) == "" {
		return nil, ErrNoProduct
	}
	modelPath := lo.CoalesceOrEmpty(strings.TrimSpace(req.ModelPath), s.modelPath)
	if modelPath == "" {
		return nil, errors.New("campaign: model path is required")
	}
	draft, err := s.writer.Draft(ctx, req.Brief)
	if err != nil {
		return nil, fmt.Errorf("campaign: draft concepts: %w", err)
	}

	report := &Report{
		ID:       uuid.NewString(),
		Provider: draft.Provider,
		Degraded: draft.Degraded,
		Issues:   draft.Issues,
		Items:    make([]Item, len(draft.Concepts)),
	}
	log := s.logger.With().Str("campaign_id", report.ID).Logger()
	log.Info().Int("concepts", len(draft.Concepts)).Str("provider", draft.Provider).Msg("campaign: started")

	var eg errgroup.Group
	eg.SetLimit(s.concurrency)
	for i, concept := range draft.Concepts {
		eg.Go(func() error {
			report.Items[i] = s.runItem(ctx, report.ID, i, concept, modelPath, req)
			return nil
		})
	}
	_ = eg.Wait()

	report.Succeeded = lo.CountBy(report.Items, func(it Item) bool { return it.Status == relay.JobStatusCompleted })
	report.Failed = len(report.Items) - report.Succeeded
	log.Info().Int("succeeded", report.Succeeded).Int("failed", report.Failed).Msg("campaign: finished")
	return report, ctx.Err()
}

func (s *Service) runItem(ctx context.Context, campaignID string, pos int, concept copywriter.Concept, modelPath string, req Request) Item {
	item := Item{Position: pos, Title: concept.Title, Subtitle: concept.Subtitle, Prompt: buildPrompt(concept, req.Brief.Style)}
	job, err := s.gen.Generate(ctx, modelPath, relay.GenerationRequest{
		Prompt:      item.Prompt,
		SourceImage: req.SourceImage,
		Strength:    req.Strength,
		Size:        req.Size,
	})
	if job != nil {
		item.JobID = job.ID
		item.Status = job.Status
		item.ResultURL = job.ResultURL
		item.ErrorKind = job.ErrorKind
	}
	if err != nil {
		item.Error = err.Error()
		if item.Status == "" || item.Status == relay.JobStatusCompleted {
			item.Status = relay.JobStatusFailed
		}
		if item.ErrorKind == "" {
			item.ErrorKind = relay.KindOf(err)
		}
		s.logger.Warn().Err(err).Str("campaign_id", campaignID).Int("position", pos).Msg("campaign: item failed")
	}

	if err == nil && req.Download && s.assets != nil {
		key, derr := s.download(ctx, campaignID, pos, item.ResultURL)
		if derr != nil {
			s.logger.Warn().Err(derr).Str("campaign_id", campaignID).Int("position", pos).Msg("campaign: download failed")
		} else {
			item.AssetKey = key
		}
	}

	if job != nil {
		rec := &jobstore.Record{
			Job:        *job,
			CampaignID: campaignID,
			Position:   pos,
			AssetKey:   item.AssetKey,
			Title:      item.Title,
			Subtitle:   item.Subtitle,
		}
		if serr := s.jobs.Save(context.WithoutCancel(ctx), rec); serr != nil {
			s.logger.Error().Err(serr).Str("job_id", job.ID).Msg("campaign: save job")
		}
	}
	return item
}

func buildPrompt(c copywriter.Concept, style string) string {
	prompt := strings.TrimSpace(c.ImagePrompt)
	if style = strings.TrimSpace(style); style != "" && !strings.Contains(strings.ToLower(prompt), strings.ToLower(style)) {
		prompt += ", " + style + " style"
	}
	return prompt
}

func (s *Service) download(ctx context.Context, campaignID string, pos int, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("campaign: build download: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("campaign: download: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("campaign: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return "", fmt.Errorf("campaign: read download: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return "", fmt.Errorf("campaign: image exceeds %d bytes", maxDownloadBytes)
	}
	key := fmt.Sprintf("%s%02d%s", assetPrefix(campaignID), pos+1, extensionFor(http.DetectContentType(data), url))
	return s.assets.Write(ctx, key, data)
}

func extensionFor(contentType, url string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}

// Get rebuilds a report from the job store.
func (s *Service) Get(ctx context.Context, campaignID string) (*Report, error) {
	recs, err := s.jobs.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	report := &Report{ID: campaignID}
	for _, rec := range recs {
		item := Item{
			Position:  rec.Position,
			JobID:     rec.Job.ID,
			Title:     rec.Title,
			Subtitle:  rec.Subtitle,
			Status:    rec.Job.Status,
			ResultURL: rec.Job.ResultURL,
			AssetKey:  rec.AssetKey,
			ErrorKind: rec.Job.ErrorKind,
			Error:     rec.Job.Error,
		}
		if item.Status == relay.JobStatusCompleted {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Items = append(report.Items, item)
	}
	return report, nil
}

func assetPrefix(campaignID string) string {
	return "campaigns/" + campaignID + "/"
}

// Archive writes every stored image of the campaign to w as a zip.
func (s *Service) Archive(ctx context.Context, campaignID string, w io.Writer) error {
	if s.assets == nil {
		return ErrNoAssets
	}
	recs, err := s.jobs.ListByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return ErrNotFound
	}
	keys, err := s.assets.List(ctx, assetPrefix(campaignID))
	if err != nil {
		return fmt.Errorf("campaign: archive %s: %w", campaignID, err)
	}
	modified := make(map[string]time.Time, len(recs))
	for _, rec := range recs {
		if rec.AssetKey != "" {
			modified[rec.AssetKey] = rec.UpdatedAt
		}
	}
	assets := make([]zip.Asset, 0, len(keys))
	for _, key := range keys {
		data, err := s.assets.Read(ctx, key)
		if err != nil {
			return fmt.Errorf("campaign: archive %s: %w", key, err)
		}
		assets = append(assets, zip.Asset{Filename: key, Data: data, Modified: modified[key]})
	}
	if len(assets) == 0 {
		return ErrNoAssets
	}
	return zip.Write(w, assets)
}
