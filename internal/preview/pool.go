package preview

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

// Job 一次预览富化任务
type Job struct {
	LinkID string
	URL    string
}

// Pool 有界后台工作池。链接创建后把任务扔进来即返回，
// 抓取/镜像/回写全部与原请求隔离，任何失败只记日志，绝不外溢。
type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	fetcher *Fetcher
	mirror  *Mirror
	timeout time.Duration
}

// NewPool 启动 workers 个后台 worker。队列满时 Enqueue 丢弃任务而不是阻塞，
// 预览是 best-effort 的增强，不值得为它拖慢创建请求。
func NewPool(workers, queueSize int, fetcher *Fetcher, mirror *Mirror, jobTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	p := &Pool{
		jobs:    make(chan Job, queueSize),
		fetcher: fetcher,
		mirror:  mirror,
		timeout: jobTimeout,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue 提交任务，返回是否入队成功
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		logging.Logger.Warn("预览任务队列已满，丢弃任务",
			zap.String("link_id", job.LinkID),
			zap.String("url", job.URL),
		)
		return false
	}
}

// Stop 关闭队列并等待在途任务完成（优雅停机时调用）
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// truncateRunes 按字节上限截断并回退到 rune 边界，避免写入非法 UTF-8
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.runOne(job)
	}
}

func (p *Pool) runOne(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger.Error("预览任务 panic",
				zap.String("link_id", job.LinkID),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	p.process(ctx, job)
}

func (p *Pool) process(ctx context.Context, job Job) {
	meta, err := p.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		// 抓不到元数据不是错误场景：链接保持原样，预览字段留空
		logging.Logger.Info("预览元数据抓取失败",
			zap.String("link_id", job.LinkID),
			zap.String("url", job.URL),
			zap.Error(err),
		)
		return
	}

	var description *string
	if meta.Description != "" {
		d := truncateRunes(meta.Description, 500)
		description = &d
	}

	var imageURL *string
	var objectKey string
	if meta.ImageURL != "" {
		mirrored, key, err := p.mirror.MirrorImage(ctx, meta.ImageURL, job.LinkID)
		if err != nil {
			// 镜像失败就留空，不回填未经验证的外链
			logging.Logger.Info("预览图镜像失败",
				zap.String("link_id", job.LinkID),
				zap.String("image_url", meta.ImageURL),
				zap.Error(err),
			)
		} else {
			imageURL = &mirrored
			objectKey = key
		}
	}

	// 只回写预览两个字段，title/url/position/is_active 不受影响
	res := repository.DB.Model(&model.Link{}).
		Where("id = ?", job.LinkID).
		Updates(map[string]interface{}{
			"preview_image_url":   imageURL,
			"preview_description": description,
		})
	if res.Error != nil {
		logging.Logger.Error("预览字段回写失败",
			zap.String("link_id", job.LinkID),
			zap.Error(res.Error),
		)
		return
	}
	if res.RowsAffected == 0 {
		// 链接在回写前被删除，静默跳过；已转存的图一并清掉
		if objectKey != "" {
			if err := p.mirror.store.Delete(ctx, objectKey); err != nil {
				logging.Logger.Warn("清理孤儿预览图失败",
					zap.String("object_key", objectKey),
					zap.Error(err),
				)
			}
		}
		return
	}
}
