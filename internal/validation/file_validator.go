package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mtid/pkg/contracts/domain"
)

// ErrTemporaryFile is returned for office lock files such as "~$trade.xlsx"
var ErrTemporaryFile = errors.New("temporary office file")

// FileValidator checks trade source files and export targets before they
// are opened
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateSources checks the formal and informal source files and returns
// every problem found, joined
func (v *FileValidator) ValidateSources(formalPath, informalPath string) error {
	return errors.Join(
		v.ValidateSource(formalPath, domain.TradeTypeFormal),
		v.ValidateSource(informalPath, domain.TradeTypeInformal),
	)
}

// ValidateSource checks that path is a readable, non-empty .csv or .xlsx file
func (v *FileValidator) ValidateSource(path string, tradeType domain.TradeType) error {
	if err := v.ValidateFile(path); err != nil {
		return fmt.Errorf("%s trade source: %w", strings.ToLower(string(tradeType)), err)
	}

	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".txt", ".xlsx", ".xlsm":
	default:
		v.logger.Error("Unsupported trade source extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("%s trade source %s: unsupported extension %q", strings.ToLower(string(tradeType)), path, ext)
	}
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejecting temporary Excel file", slog.String("file", path))
		return fmt.Errorf("%s trade source %s: %w", strings.ToLower(string(tradeType)), path, ErrTemporaryFile)
	}

	v.logger.Debug("Trade source validated",
		slog.String("trade_type", string(tradeType)),
		slog.String("file", path))
	return nil
}

// ValidateFile checks if a specific file exists, is readable and is not empty
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		v.logger.Error("File is empty", slog.String("file", path))
		return fmt.Errorf("file %s is empty", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputFile ensures the directory of an export target exists or
// can be created, and is writable
func (v *FileValidator) ValidateOutputFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".mtid-write-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}
