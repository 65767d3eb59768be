package validation

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"library_backend/core"
)

// PDFToolName is the external rasterizer resolved on PATH. When absent, PDF
// chapters are stored in document mode instead of failing ingestion.
const PDFToolName = "pdftoppm"

// CheckWritableDir verifies a directory exists (creating it if needed) and
// accepts file writes.
func CheckWritableDir(dir string) (StepStatus, string, error) {
	if dir == "" {
		return StepFailed, "path is empty", core.ErrStorageAccess(dir, "path is empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StepFailed, "cannot create directory", core.ErrStorageAccess(dir, err.Error())
	}

	probe := filepath.Join(dir, ".write_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return StepFailed, "directory is not writable", core.ErrStorageAccess(dir, err.Error())
	}
	os.Remove(probe)

	return StepPassed, dir, nil
}

// CheckDatabasePath verifies the directory holding the SQLite file is usable.
func CheckDatabasePath(dbPath string) (StepStatus, string, error) {
	if dbPath == "" {
		return StepFailed, "path is empty", core.ErrStorageAccess(dbPath, "path is empty")
	}

	dir := filepath.Dir(dbPath)
	status, _, err := CheckWritableDir(dir)
	if status != StepPassed {
		return status, "database directory is not writable", err
	}

	return StepPassed, dbPath, nil
}

// CheckPDFTool reports whether the external PDF rasterizer is on PATH.
// Absence is a warning, not a failure: PDF uploads fall back to document mode.
func CheckPDFTool() (StepStatus, string, error) {
	path, err := exec.LookPath(PDFToolName)
	if err != nil {
		return StepWarning, fmt.Sprintf("%s not found, PDF chapters will be stored as documents", PDFToolName), nil
	}
	return StepPassed, path, nil
}

// CheckModelCredentials reports whether the external model tier is usable.
// Missing credentials are a warning: summaries fall back to the extractive
// generator.
func CheckModelCredentials(config *core.Config) (StepStatus, string, error) {
	if !config.UseOpenAI {
		return StepSkipped, "USE_OPENAI disabled, using extractive summaries only", nil
	}
	if config.OpenAIAPIKey == "" {
		return StepWarning, "USE_OPENAI is set but OPENAI_API_KEY is empty, falling back to extractive summaries", nil
	}
	return StepPassed, fmt.Sprintf("model %s", config.OpenAIModel), nil
}
