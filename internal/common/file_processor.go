package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"personakit/internal/errors"
	"personakit/internal/persona"
	"personakit/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor. Files larger than maxFileSize
// are rejected; zero disables the check.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	if fp.maxFileSize > 0 {
		if info, err := file.Stat(); err == nil && info.Size() > fp.maxFileSize {
			return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("File %s is %s, larger than the %s limit", filename,
					utils.FormatFileSize(info.Size()), utils.FormatFileSize(fp.maxFileSize)), nil)
		}
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles validates and reads job description files
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))

	for i, filename := range filenames {
		if err := utils.ValidateInputFile(filename); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		if !utils.IsTextFile(filename) {
			if fp.logger != nil {
				fp.logger.Warn("File may not be a text file", "filename", filename)
			} else {
				fmt.Fprintf(os.Stderr, "Warning: %s may not be a text file\n", filename)
			}
		}

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		contents[i] = content
	}

	return contents, nil
}

// LoadPersona reads a persona document (JSON or YAML, by extension) with its optional baseline
func (fp *FileProcessor) LoadPersona(filename string) (persona.SaveRequest, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return persona.SaveRequest{}, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid persona file %s", filename), err)
	}
	content, err := fp.ReadFile(filename)
	if err != nil {
		return persona.SaveRequest{}, err
	}
	data, err := utils.DocumentToJSON([]byte(content), filename)
	if err != nil {
		return persona.SaveRequest{}, errors.NewValidationError(errors.ErrCodeMalformedPayload,
			fmt.Sprintf("Cannot parse persona file %s", filename), err)
	}
	doc, err := persona.DecodeSaveRequest(data)
	if err != nil {
		return persona.SaveRequest{}, errors.NewValidationError(errors.ErrCodeMalformedPayload,
			fmt.Sprintf("Cannot decode persona file %s", filename), err)
	}
	if fp.logger != nil {
		fp.logger.Debug("Persona file loaded",
			"filename", filename,
			"categories", len(doc.Categories),
			"has_baseline", len(doc.Baseline) > 0)
	}
	return doc, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
