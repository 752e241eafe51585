package service

import (
	"context"
	"errors"
	"math"
	"mime/multipart"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/dto"
	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

// ErrInvalidDate 日期格式错误
var ErrInvalidDate = errors.New("日期格式错误，应为 YYYY-MM-DD")

// timeLayout 响应中时间戳的统一格式
const timeLayout = "2006-01-02 15:04:05"

// FileStore 上传文件存储（本地磁盘实现见 pkg/storage）
type FileStore interface {
	Save(subdir string, fh *multipart.FileHeader, rule storage.Rule) (*storage.File, error)
	Remove(url string) error
}

// Cache 服务层使用的 JSON 缓存；pkg/redis.Client 满足该接口且对 nil 安全
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// TokenBlacklist 登出时吊销 Token
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func toSortSpec(r dto.SortRequest) repository.SortSpec {
	return repository.SortSpec{Field: r.SortBy, Desc: r.IsDesc()}
}

func newPage[T any](list []T, total int64, p dto.PaginationRequest, defSize int) *dto.PageResult[T] {
	if list == nil {
		list = []T{}
	}
	return &dto.PageResult[T]{
		List:     list,
		Total:    total,
		Page:     p.GetPage(),
		PageSize: p.GetPageSize(defSize),
	}
}

// parseOptionalDate 解析 YYYY-MM-DD，空串返回 nil
func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &t, nil
}

// percentage 占比（保留一位小数），total 为 0 时返回 0
func percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func toCountItems(rows []repository.LabelCount) []dto.CountItem {
	items := make([]dto.CountItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.CountItem{Label: r.Label, Count: r.Count})
	}
	return items
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
