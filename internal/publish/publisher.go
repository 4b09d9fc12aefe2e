// Package publish sequences artifact upload, record persistence and the
// social announcement for one release.
package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/predb-announcer/internal/metadata"
	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Publisher runs the three publication stages. Each stage is gated on the
// previous one; completed stages are never rolled back.
type Publisher struct {
	blobs    release.BlobStore
	records  release.RecordStore
	social   release.SocialClient
	fetcher  release.Fetcher
	notifier release.Notifier
	links    metadata.Links
	timeout  time.Duration
	logger   *zap.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithRecordStore enables the persistence stage.
func WithRecordStore(store release.RecordStore) Option {
	return func(p *Publisher) {
		p.records = store
	}
}

// WithLinks overrides the deep-link templates used in the announcement.
func WithLinks(links metadata.Links) Option {
	return func(p *Publisher) {
		p.links = links
	}
}

// WithTimeout bounds each upload and persistence call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// New wires a Publisher. The notifier may be nil.
func New(
	blobs release.BlobStore,
	social release.SocialClient,
	fetcher release.Fetcher,
	notifier release.Notifier,
	logger *zap.Logger,
	opts ...Option,
) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		blobs:    blobs,
		social:   social,
		fetcher:  fetcher,
		notifier: notifier,
		links:    metadata.DefaultLinks(),
		logger:   logger.Named("publish"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish uploads artifact, optionally persists the record and announces it.
// The returned record carries the uploaded document URL and the media list.
func (p *Publisher) Publish(ctx context.Context, record release.Record, artifact release.Artifact) (release.Record, release.Outcome) {
	log := p.logger.With(zap.String("release", record.Title), zap.String("title_id", record.TitleID))

	url, err := p.upload(ctx, record, artifact)
	if err != nil {
		log.Error("artifact upload failed", zap.Error(err))
		return record, skipped(release.StageRendered, fmt.Sprintf("upload: %v", err))
	}
	record.DocumentURL = url
	log.Info("artifact uploaded", zap.String("stage", string(release.StageUploaded)), zap.String("url", url))

	if p.records != nil {
		p.alert(ctx, release.Alert{Level: release.LevelInfo, Message: fmt.Sprintf("[MDB] Adding %s to the archive", record.Title)})
		if err := p.storeRecord(ctx, record); err != nil {
			log.Warn("record persistence failed", zap.Error(err))
		} else {
			log.Info("record persisted", zap.String("stage", string(release.StagePersisted)))
		}
	}

	record.Media = p.uploadMedia(ctx, record)
	body := Body(record, p.links)
	mediaIDs := make([]string, 0, len(record.Media))
	for _, media := range record.Media {
		mediaIDs = append(mediaIDs, media.MediaID)
	}

	p.alert(ctx, release.Alert{Level: release.LevelInfo, Message: "[TWT] Posting announcement"})
	postID, err := p.social.Post(ctx, body, mediaIDs)
	if err != nil {
		p.alert(ctx, release.Alert{Level: release.LevelError, Message: fmt.Sprintf("[TWT] Posting %s failed: %v", record.Title, err)})
		return record, skipped(lastStage(p.records != nil), fmt.Sprintf("announce: %v", err))
	}
	log.Info("release announced", zap.String("stage", string(release.StageAnnounced)), zap.String("post_id", postID))

	p.alert(ctx, release.Alert{
		Level:    release.LevelInfo,
		Message:  announcementMessage(body, record.Media),
		Announce: true,
		Actions: []release.Action{
			release.ViewAction("View on Twitter", p.social.StatusURL(postID)),
			release.ViewAction("View on Tinfoil", p.links.TinfoilURL(record.MaskedID)),
			release.ViewAction("View on eShop", p.links.EShopURL(record.MaskedID)),
		},
	})
	return record, release.Outcome{Status: release.OutcomeAnnounced, Stage: release.StageAnnounced, PostID: postID}
}

func (p *Publisher) upload(ctx context.Context, record release.Record, artifact release.Artifact) (string, error) {
	p.alert(ctx, release.Alert{Level: release.LevelInfo, Message: fmt.Sprintf("[RNR] Uploading rendered NFO %s", record.Title)})
	name := fmt.Sprintf("%s.%s", record.Title, artifact.Format)
	putCtx, cancel := p.bounded(ctx)
	defer cancel()
	url, err := p.blobs.PutObject(putCtx, name, artifact.Format.ContentType(), artifact.Data)
	if err != nil {
		p.alert(ctx, release.Alert{Level: release.LevelError, Message: fmt.Sprintf("[RNR] Uploading %s failed: %v", name, err)})
		return "", err
	}
	if url == "" {
		return "", fmt.Errorf("blob store returned no url for %s", name)
	}
	return url, nil
}

func (p *Publisher) storeRecord(ctx context.Context, record release.Record) error {
	storeCtx, cancel := p.bounded(ctx)
	defer cancel()
	return p.records.StoreRecord(storeCtx, record)
}

func (p *Publisher) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// uploadMedia attaches the thumbnail, document and proof images that are
// present. A failed image is left out of the result.
func (p *Publisher) uploadMedia(ctx context.Context, record release.Record) []release.MediaUpload {
	p.alert(ctx, release.Alert{Level: release.LevelInfo, Message: fmt.Sprintf("[UMD] Uploading media for %s", record.Title)})

	sources := []struct {
		kind string
		url  string
	}{
		{kind: "thumb", url: record.ThumbnailURL},
		{kind: "nfo", url: record.DocumentURL},
		{kind: "proof", url: record.ProofURL},
	}

	var uploads []release.MediaUpload
	for _, src := range sources {
		if src.url == "" {
			continue
		}
		p.alert(ctx, release.Alert{Level: release.LevelInfo, Message: fmt.Sprintf("[UMD] Uploading %s media for %s: %s", src.kind, record.Title, src.url)})

		data, err := p.fetcher.FetchBytes(ctx, "UMD", src.url)
		if err != nil {
			continue
		}
		id, err := p.social.UploadMedia(ctx, data, fmt.Sprintf("%s_%s.jpg", src.kind, record.TitleID))
		if err != nil {
			p.logger.Warn("media upload failed", zap.String("kind", src.kind), zap.Error(err))
			continue
		}
		uploads = append(uploads, release.MediaUpload{URL: src.url, MediaID: id})
	}
	return uploads
}

func (p *Publisher) alert(ctx context.Context, alert release.Alert) {
	if p.notifier != nil {
		p.notifier.Notify(ctx, alert)
	}
}

// Body renders the announcement text.
func Body(record release.Record, links metadata.Links) string {
	return fmt.Sprintf(`
New Release by %s!
    
%s [%s][%s]
Size: %s

View on Tinfoil: %s
View on eShop: %s
`,
		record.Uploader(),
		record.Title, record.TitleID, record.CRC,
		record.Size,
		links.TinfoilURL(record.MaskedID),
		links.EShopURL(record.MaskedID),
	)
}

func announcementMessage(body string, media []release.MediaUpload) string {
	urls := make([]string, 0, len(media))
	for _, m := range media {
		urls = append(urls, m.URL)
	}
	return fmt.Sprintf("[REL] %s\n\n%s", body, strings.Join(urls, "\n"))
}

func lastStage(persisted bool) release.Stage {
	if persisted {
		return release.StagePersisted
	}
	return release.StageUploaded
}

func skipped(stage release.Stage, reason string) release.Outcome {
	return release.Outcome{Status: release.OutcomeSkipped, Stage: stage, Reason: reason}
}
