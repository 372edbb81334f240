package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// ValidateUsername 校验用户名是否合法（小写字母、数字、下划线，3-20 位）
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("error.username_required")
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("error.username_invalid")
	}

	return nil
}

// ValidateTargetURL 校验目标 URL 的合法性
func ValidateTargetURL(targetURL string) error {
	// 1. 检查目标 URL 是否为空
	if targetURL == "" {
		return fmt.Errorf("error.target_url_required")
	}

	// 2. URL 格式校验，只允许 http/https
	u, err := url.ParseRequestURI(targetURL)
	if err != nil {
		return fmt.Errorf("error.target_url_invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("error.target_url_invalid")
	}

	// 3. URL 长度限制
	if len(targetURL) > 2048 {
		return fmt.Errorf("error.target_url_max_length")
	}
	return nil
}

// ValidateLinkTitle 校验链接标题
func ValidateLinkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("error.title_required")
	}
	if len(title) > 800 {
		return fmt.Errorf("error.title_max_length")
	}
	return nil
}

// NormalizeURL 尝试补全缺失的 scheme（例如 example.com -> https://example.com）
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("error.target_url_required")
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		return u.String(), nil
	}
	u, err := url.Parse("https://" + raw)
	if err != nil {
		return "", fmt.Errorf("error.target_url_invalid")
	}
	return u.String(), nil
}

func ContainsWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
