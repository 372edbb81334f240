package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KartikLabhshetwar/oneurl/internal/storage"
)

// 预览图大小上限
const maxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

// Mirror 下载远端预览图并转存到自有对象存储
type Mirror struct {
	client *http.Client
	store  storage.ObjectStorage
}

func NewMirror(store storage.ObjectStorage, timeout time.Duration) *Mirror {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Mirror{
		client: &http.Client{Timeout: timeout},
		store:  store,
	}
}

// MirrorImage 抓取 imageURL，校验确实是图片后重新上传。
// 任何一步失败都返回错误，由调用方把预览图留空，绝不回填未经验证的外链。
// 成功时返回 (公开 URL, 对象 key)。
func (m *Mirror) MirrorImage(ctx context.Context, imageURL, linkID string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("unexpected status %d fetching image %s", resp.StatusCode, imageURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", fmt.Errorf("not an image: content-type %q", contentType)
	}
	if i := strings.Index(contentType, ";"); i > 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", "", err
	}

	key := fmt.Sprintf("link-preview-%s-%d.%s", linkID, time.Now().Unix(), extensionFor(contentType))
	publicURL, err := m.store.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", err
	}

	return publicURL, key, nil
}

func extensionFor(contentType string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return "jpg"
}

// ObjectKeyFromURL 从镜像图的公开 URL 反推对象 key（最后一个路径段）。
// 删除链接时按这个 key 清理转存的预览图。
func ObjectKeyFromURL(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	key := parts[len(parts)-1]
	if !strings.HasPrefix(key, "link-preview-") {
		return ""
	}
	return key
}
