package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
)

func newDownloadCmd(c *cli) *cobra.Command {
	var (
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the GENCODE gene tables used for feature ID checks",
		Long: `Download the gzip-compressed gene tables used to check feature IDs: human GENCODE
releases 43 and 44, mouse, SARS-CoV-2 and ERCC spike-ins. Existing files are kept unless
--force is given.`,
		Example: `  # Download into the configured gencode_dir (default ~/.cellarium-schema/gencode)
  cellarium-schema download

  # Download to a custom directory
  cellarium-schema download --output /data/gencode`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := outputDir
			if dir == "" {
				dir = configString(keyGencodeDir)
			}
			return c.runDownload(cmd.Context(), gencode.NewFiles(dir), force)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: gencode_dir from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Download files that already exist")

	return cmd
}

func (c *cli) runDownload(ctx context.Context, files *gencode.Files, force bool) error {
	if files.Dir() == "" {
		return fmt.Errorf("no gencode directory configured")
	}
	if err := os.MkdirAll(files.Dir(), 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", files.Dir(), err)
	}

	fmt.Fprintf(c.stdout, "Downloading gene tables to %s\n\n", files.Dir())

	missing := make(map[string]bool)
	for _, r := range files.Missing() {
		missing[r.Name] = true
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	for _, r := range files.Resources() {
		if !force && !missing[r.Name] {
			fmt.Fprintf(c.stdout, "  %s already exists, skipping\n", r.Name)
			continue
		}
		c.logger.Debug("downloading gene table", zap.String("url", r.URL), zap.String("path", r.Path))
		if err := downloadFile(ctx, client, r.URL, r.Path, c.stdout); err != nil {
			return fmt.Errorf("download %s: %w", r.Name, err)
		}
	}

	fmt.Fprintf(c.stdout, "\nDownload complete!\n")
	return nil
}

// downloadFile fetches url into destPath through a temporary file.
func downloadFile(ctx context.Context, client *http.Client, url, destPath string, out io.Writer) error {
	fmt.Fprintf(out, "  Downloading %s...\n", filepath.Base(destPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		out:       out,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
	}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(out, "    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter reports download progress at most once a second.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
