package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// 外站页面可能很大，元数据都在 <head> 里，读这么多足够了
const maxHTMLBytes = 2 << 20

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Metadata 抓取到的页面元数据，空串表示缺失
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image"`
}

// Fetcher 带超时上限的远端页面元数据抓取器
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch 抓取页面并提取标题/描述/预览图。
// 结构化的社交预览标签（og: / twitter:）优先于通用 HTML 标签。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		Title:       firstOf(doc, metaProperty("og:title"), metaName("twitter:title")),
		Description: firstOf(doc, metaProperty("og:description"), metaName("twitter:description"), metaName("description")),
		ImageURL:    firstOf(doc, metaProperty("og:image"), metaName("twitter:image"), metaProperty("og:image:url")),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return meta, nil
}

type extractor func(*goquery.Document) string

func metaProperty(property string) extractor {
	selector := fmt.Sprintf(`meta[property=%q]`, property)
	return func(doc *goquery.Document) string {
		content, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(content)
	}
}

func metaName(name string) extractor {
	selector := fmt.Sprintf(`meta[name=%q]`, name)
	return func(doc *goquery.Document) string {
		content, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(content)
	}
}

func firstOf(doc *goquery.Document, extractors ...extractor) string {
	for _, extract := range extractors {
		if v := extract(doc); v != "" {
			return v
		}
	}
	return ""
}
