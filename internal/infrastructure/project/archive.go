package project

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// WriteZip 把项目目录打包写入 w，zip 内路径相对项目目录
// 不落盘，避免并发下载互相覆盖
func (s *FSStore) WriteZip(w io.Writer, projectName string) error {
	dir, err := s.Resolve(projectName, "")
	if err != nil {
		return err
	}
	if !s.Exists(dir) {
		return fmt.Errorf("project %s: %w", projectName, os.ErrNotExist)
	}

	rules := LoadIgnoreRules(dir)
	zw := zip.NewWriter(w)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		if rules.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		return addZipEntry(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to create zip archive: %w", err)
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate
	header.Modified = info.ModTime().In(time.UTC)

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}
