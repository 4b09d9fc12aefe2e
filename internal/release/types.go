// Package release defines core types shared across the announcer subsystems.
package release

import (
	"time"
)

// Candidate is one entry from a catalog scan. It only lives for one poll cycle.
type Candidate struct {
	Name        string    `json:"release"`
	HasDocument bool      `json:"hasNFO"`
	PublishedAt time.Time `json:"-"`
}

// FileDescriptor describes one stored file belonging to a release.
type FileDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	CRC  string `json:"crc"`
}

// ArchivedFile describes one file packed inside the release archives.
type ArchivedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	CRC  string `json:"crc"`
}

// ReleaseDetails is the catalog metadata for a release name.
type ReleaseDetails struct {
	Name          string           `json:"name"`
	Files         []FileDescriptor `json:"files"`
	ArchivedFiles []ArchivedFile   `json:"archived-files"`
}

// MediaUpload pairs a source image URL with the handle the social sink assigned to it.
type MediaUpload struct {
	URL     string `json:"url"`
	MediaID string `json:"media_id"`
}

// Record is the enriched release passed through rendering and publication.
type Record struct {
	Title        string        `json:"title"`
	TitleID      string        `json:"tid"`
	MaskedID     string        `json:"masked_tid"`
	Size         string        `json:"size"`
	CRC          string        `json:"crc"`
	ProofURL     string        `json:"proof,omitempty"`
	DocumentURL  string        `json:"nfo"`
	ThumbnailURL string        `json:"thumb"`
	Media        []MediaUpload `json:"media,omitempty"`
}

// Uploader returns the group tag that follows the final hyphen of the title.
func (r Record) Uploader() string {
	for i := len(r.Title) - 1; i >= 0; i-- {
		if r.Title[i] == '-' {
			return r.Title[i+1:]
		}
	}
	return r.Title
}

// ImageFormat is the raster encoding of a rendered artifact.
type ImageFormat string

// Supported artifact formats.
const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	return "image/" + string(f)
}

// Artifact is an encoded image produced by a Renderer. It is consumed once by the upload stage.
type Artifact struct {
	Data   []byte
	Format ImageFormat
	Width  int
	Height int
}

// Stage names a step in one release's traversal of the pipeline.
type Stage string

// Pipeline stages, in traversal order.
const (
	StageDiscovered   Stage = "discovered"
	StageDeduplicated Stage = "deduplicated"
	StageExtracted    Stage = "extracted"
	StageRendered     Stage = "rendered"
	StageUploaded     Stage = "uploaded"
	StagePersisted    Stage = "persisted"
	StageAnnounced    Stage = "announced"
)

// OutcomeStatus is the terminal state of a release traversal.
type OutcomeStatus string

// Terminal states.
const (
	OutcomeAnnounced OutcomeStatus = "announced"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Outcome reports how far a release got and why it stopped.
type Outcome struct {
	Status OutcomeStatus
	// Stage is the last stage reached successfully.
	Stage  Stage
	Reason string
	PostID string
}

// Announced reports whether the release reached the terminal announced state.
func (o Outcome) Announced() bool {
	return o.Status == OutcomeAnnounced
}
