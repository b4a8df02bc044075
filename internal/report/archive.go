package report

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ArchiveName 报告压缩包名
func ArchiveName(now time.Time) string {
	return now.Format("20060102") + "_价格波动分析.zip"
}

// Archive 将 outputDir 打包为 outputDir/YYYYMMDD_价格波动分析.zip（不含压缩包自身）
func Archive(outputDir string, now time.Time) (string, error) {
	zipPath := filepath.Join(outputDir, ArchiveName(now))
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", zipPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == zipPath {
			return nil
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("failed to archive %s: %w", outputDir, err)
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return zipPath, out.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
