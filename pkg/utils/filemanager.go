// =============================================================================
// Speakboard - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for batch imports:
//   - Input discovery (spreadsheets waiting in the input directory)
//   - Input archival (moving imported spreadsheets out of the way)
//   - Import reports (one YAML file per batch)
//   - Atomic writes (temp file + rename) used by the file store
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the archive directory after a successful,
//     non-dry-run import
//   - Failed and cancelled imports leave the input in place
//   - Reports are written for every batch, successful or not
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/speakboard/internal/types"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around import batches.
type FileManager struct {
	// InputDir is the directory scanned for spreadsheets.
	InputDir string

	// ArchiveDir receives imported spreadsheets.
	ArchiveDir string

	// ReportDir receives YAML import reports.
	ReportDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/board.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether imported files are moved at all.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, archiveDir, reportDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		ArchiveDir:       archiveDir,
		ReportDir:        reportDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all configured directories that don't exist.
// Empty paths are ignored.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.ArchiveDir, fm.ReportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching pattern.
//
// PARAMETERS:
//   - pattern: One glob or a comma-separated list of globs
//              (e.g. "*.xlsx,*.csv"). If empty, defaults to "*.xlsx".
//
// RETURNS:
//   - The matching regular files, sorted and without duplicates.
//   - An error if a pattern is malformed.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.xlsx"
	}

	seen := make(map[string]bool)
	var result []string
	for _, p := range strings.Split(pattern, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		files, err := filepath.Glob(filepath.Join(fm.InputDir, p))
		if err != nil {
			return nil, fmt.Errorf("failed to scan input directory: %w", err)
		}

		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil || info.IsDir() || seen[file] {
				continue
			}
			seen[file] = true
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an imported file to the archive directory.
//
// RETURNS:
//   - The path to the archived file (the original path when archiving is
//     disabled).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess || fm.ArchiveDir == "" {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file. An existing file
// with the same name is never overwritten; a timestamp is inserted instead.
func (fm *FileManager) getArchivePath(filePath string) string {
	dir := fm.ArchiveDir
	now := time.Now()
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	fileName := filepath.Base(filePath)
	target := filepath.Join(dir, fileName)
	if FileExists(target) {
		ext := filepath.Ext(fileName)
		base := strings.TrimSuffix(fileName, ext)
		target = filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), ext))
	}
	return target
}

// =============================================================================
// IMPORT REPORTS
// =============================================================================

// Report statuses.
const (
	ReportDone      = "done"
	ReportFailed    = "failed"
	ReportCancelled = "cancelled"
)

// ImportReport is the YAML record written for one import batch.
type ImportReport struct {
	File      string              `yaml:"file"`
	Archived  string              `yaml:"archived,omitempty"`
	Status    string              `yaml:"status"`
	Error     string              `yaml:"error,omitempty"`
	DryRun    bool                `yaml:"dry_run"`
	StartedAt time.Time           `yaml:"started_at"`
	Duration  string              `yaml:"duration"`
	Summary   types.ImportSummary `yaml:"summary"`
	Failures  []types.FailedIcon  `yaml:"failures,omitempty"`
}

// GenerateReportFileName returns a unique report name of the form
// import_<timestamp>_<uuid>.yaml.
func GenerateReportFileName(now time.Time) string {
	return fmt.Sprintf("import_%s_%s.yaml", now.Format("20060102_150405"), uuid.New().String())
}

// WriteImportReport writes report into dir.
//
// RETURNS:
//   - The path to the report file.
//   - An error if encoding or writing fails.
func WriteImportReport(dir string, report ImportReport) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode import report: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, GenerateReportFileName(time.Now()))
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadImportReport decodes a report written by WriteImportReport.
func ReadImportReport(path string) (*ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import report: %w", err)
	}
	var report ImportReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode import report: %w", err)
	}
	return &report, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
