package metadata

import "strings"

// Default link templates keyed on the masked title ID.
const (
	DefaultThumbnailURL = "https://tinfoil.media/ti/{title_id}/1024/1024/"
	DefaultTinfoilURL   = "https://tinfoil.io/Title/{title_id}"
	DefaultEShopURL     = "https://ec.nintendo.com/apps/{title_id}/US"
)

// Links renders the deterministic URLs derived from a masked title ID.
type Links struct {
	Thumbnail string
	Tinfoil   string
	EShop     string
}

// DefaultLinks returns the public link templates.
func DefaultLinks() Links {
	return Links{
		Thumbnail: DefaultThumbnailURL,
		Tinfoil:   DefaultTinfoilURL,
		EShop:     DefaultEShopURL,
	}
}

func (l Links) withDefaults() Links {
	if l.Thumbnail == "" {
		l.Thumbnail = DefaultThumbnailURL
	}
	if l.Tinfoil == "" {
		l.Tinfoil = DefaultTinfoilURL
	}
	if l.EShop == "" {
		l.EShop = DefaultEShopURL
	}
	return l
}

// ThumbnailURL returns the cover image URL.
func (l Links) ThumbnailURL(maskedID string) string {
	return expand(l.withDefaults().Thumbnail, maskedID)
}

// TinfoilURL returns the title page deep link.
func (l Links) TinfoilURL(maskedID string) string {
	return expand(l.withDefaults().Tinfoil, maskedID)
}

// EShopURL returns the store page deep link.
func (l Links) EShopURL(maskedID string) string {
	return expand(l.withDefaults().EShop, maskedID)
}

func expand(template, maskedID string) string {
	return strings.ReplaceAll(template, "{title_id}", maskedID)
}
