package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge       = errors.New("文件大小超出限制")
	ErrFileTypeNotAllowed = errors.New("文件类型不允许")
	ErrEmptyFile          = errors.New("文件为空")
)

// Rule 上传校验规则
type Rule struct {
	MaxBytes   int64
	Extensions map[string]string // 扩展名 -> 允许的 MIME 前缀
}

// IconRule 图标：svg/png/jpeg，≤ 2MB
var IconRule = Rule{
	MaxBytes: 2 << 20,
	Extensions: map[string]string{
		".svg":  "image/svg+xml",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
	},
}

// PhotoRule 用户头像
var PhotoRule = Rule{
	MaxBytes: 2 << 20,
	Extensions: map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".webp": "image/webp",
	},
}

// AttachmentRule 产品附件
var AttachmentRule = Rule{
	MaxBytes: 10 << 20,
	Extensions: map[string]string{
		".pdf":  "",
		".doc":  "",
		".docx": "",
		".xls":  "",
		".xlsx": "",
		".ppt":  "",
		".pptx": "",
		".png":  "image/",
		".jpg":  "image/",
		".jpeg": "image/",
		".zip":  "",
		".txt":  "",
	},
}

// File 已保存文件的元数据
type File struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Local 本地磁盘存储，文件通过静态路由 publicPrefix 对外暴露
type Local struct {
	baseDir      string
	publicPrefix string
}

// NewLocal 创建本地存储并确保根目录存在
func NewLocal(baseDir, publicPrefix string) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &Local{baseDir: baseDir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// BaseDir 上传根目录
func (s *Local) BaseDir() string { return s.baseDir }

// Save 按规则校验并保存上传文件到 subdir，文件名使用 UUID 避免冲突与路径穿越
func (s *Local) Save(subdir string, fh *multipart.FileHeader, rule Rule) (*File, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrEmptyFile
	}
	if rule.MaxBytes > 0 && fh.Size > rule.MaxBytes {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	mimePrefix, ok := rule.Extensions[ext]
	if !ok {
		return nil, ErrFileTypeNotAllowed
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer src.Close()

	mimeType, err := sniff(src, ext)
	if err != nil {
		return nil, err
	}
	if mimePrefix != "" && !strings.HasPrefix(mimeType, mimePrefix) {
		return nil, ErrFileTypeNotAllowed
	}

	dir := filepath.Join(s.baseDir, filepath.Clean("/" + subdir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}

	return &File{
		Name:     fh.Filename,
		URL:      path.Join(s.publicPrefix, filepath.ToSlash(filepath.Clean("/"+subdir)), name),
		Size:     written,
		MimeType: mimeType,
	}, nil
}

// Remove 删除 URL 对应的本地文件；文件不存在视为成功
func (s *Local) Remove(url string) error {
	if url == "" || !strings.HasPrefix(url, s.publicPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(url, s.publicPrefix)
	full := filepath.Join(s.baseDir, filepath.Clean("/"+rel))
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// sniff 读取文件头判断 MIME，读取后将偏移复位
func sniff(f multipart.File, ext string) (string, error) {
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	// DetectContentType 将 svg 识别为 text/xml
	if ext == ".svg" {
		content := strings.ToLower(string(head[:n]))
		if strings.Contains(content, "<svg") || strings.Contains(content, "<?xml") {
			return "image/svg+xml", nil
		}
		return "", ErrFileTypeNotAllowed
	}
	return http.DetectContentType(head[:n]), nil
}
