package storage

import (
	"fmt"
	"strings"
)

// URLBuilder turns stored object keys into public URLs and substitutes a
// placeholder for products without imagery.
type URLBuilder struct {
	baseURL     string
	bucket      string
	region      string
	placeholder string
}

func NewURLBuilder(baseURL, bucket, region, placeholder string) *URLBuilder {
	return &URLBuilder{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bucket:      bucket,
		region:      region,
		placeholder: placeholder,
	}
}

func (b *URLBuilder) Placeholder() string {
	return b.placeholder
}

// URL returns the public URL for key. Absolute URLs pass through and an
// empty key yields the placeholder.
func (b *URLBuilder) URL(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return b.placeholder
	case strings.HasPrefix(key, "http://"), strings.HasPrefix(key, "https://"):
		return key
	case b.baseURL != "":
		return fmt.Sprintf("%s/%s", b.baseURL, strings.TrimLeft(key, "/"))
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, strings.TrimLeft(key, "/"))
	}
}

// URLs maps every key, falling back to a single placeholder when no usable
// key is given.
func (b *URLBuilder) URLs(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		out = append(out, b.URL(k))
	}
	if len(out) == 0 && b.placeholder != "" {
		out = append(out, b.placeholder)
	}
	return out
}
