package storage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newFileHeader 通过真实 multipart 解析构造 FileHeader
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("创建表单文件失败: %v", err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("解析表单失败: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000000000")

func TestLocal_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocal 失败: %v", err)
	}

	f, err := s.Save("icons/stage", newFileHeader(t, "growth.png", pngHeader), IconRule)
	if err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}
	if !strings.HasPrefix(f.URL, "/uploads/icons/stage/") {
		t.Errorf("URL 前缀不符: %s", f.URL)
	}
	if f.MimeType != "image/png" {
		t.Errorf("期望 image/png，实际=%s", f.MimeType)
	}
	if f.Name != "growth.png" {
		t.Errorf("期望保留原文件名，实际=%s", f.Name)
	}

	onDisk := filepath.Join(dir, "icons", "stage", filepath.Base(f.URL))
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("文件应已写入磁盘: %v", err)
	}

	if err := s.Remove(f.URL); err != nil {
		t.Fatalf("Remove 应成功: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Error("文件应已删除")
	}
	if err := s.Remove(f.URL); err != nil {
		t.Errorf("重复删除应视为成功: %v", err)
	}
}

func TestLocal_SaveSVG(t *testing.T) {
	s, _ := NewLocal(t.TempDir(), "/uploads")
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)

	f, err := s.Save("icons", newFileHeader(t, "logo.svg", svg), IconRule)
	if err != nil {
		t.Fatalf("Save svg 应成功: %v", err)
	}
	if f.MimeType != "image/svg+xml" {
		t.Errorf("期望 image/svg+xml，实际=%s", f.MimeType)
	}
}

func TestLocal_RejectsWrongType(t *testing.T) {
	s, _ := NewLocal(t.TempDir(), "/uploads")

	_, err := s.Save("icons", newFileHeader(t, "script.exe", []byte("MZ....")), IconRule)
	if !errors.Is(err, ErrFileTypeNotAllowed) {
		t.Errorf("期望 ErrFileTypeNotAllowed，实际: %v", err)
	}

	// 扩展名伪装
	_, err = s.Save("icons", newFileHeader(t, "fake.png", []byte("plain text content")), IconRule)
	if !errors.Is(err, ErrFileTypeNotAllowed) {
		t.Errorf("伪装 png 期望 ErrFileTypeNotAllowed，实际: %v", err)
	}
}

func TestLocal_RejectsOversize(t *testing.T) {
	s, _ := NewLocal(t.TempDir(), "/uploads")
	big := append(append([]byte{}, pngHeader...), make([]byte, 2<<20)...)

	_, err := s.Save("icons", newFileHeader(t, "big.png", big), IconRule)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("期望 ErrFileTooLarge，实际: %v", err)
	}
}

func TestLocal_RemoveIgnoresForeignURL(t *testing.T) {
	s, _ := NewLocal(t.TempDir(), "/uploads")
	if err := s.Remove("https://cdn.example.com/a.png"); err != nil {
		t.Errorf("外部 URL 应忽略: %v", err)
	}
}
