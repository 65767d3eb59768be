package validation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"library_backend/core"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	base := t.TempDir()
	return &core.Config{
		DatabasePath: filepath.Join(base, "data", "library.db"),
		StorageRoot:  filepath.Join(base, "chapters"),
		OpenAIModel:  "gpt-4o-mini",
		Port:         8080,
	}
}

func TestValidateSuccess(t *testing.T) {
	config := testConfig(t)

	suite := NewValidationSuite().WithShowProgress(false)
	result := suite.Validate(config)

	if !result.Success {
		t.Fatalf("Expected success, got %s", result.Summary())
	}
	if result.TotalSteps != 4 {
		t.Errorf("TotalSteps = %d, want 4", result.TotalSteps)
	}
	if result.FailedSteps != 0 {
		t.Errorf("FailedSteps = %d, want 0", result.FailedSteps)
	}
	if err := result.GetFirstError(); err != nil {
		t.Errorf("GetFirstError() = %v, want nil", err)
	}
}

func TestValidateUnwritableStorageFails(t *testing.T) {
	config := testConfig(t)
	// A storage root under an existing regular file cannot be created
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}
	config.StorageRoot = filepath.Join(blocker, "chapters")

	suite := NewValidationSuite().WithShowProgress(false)
	result := suite.Validate(config)

	if result.Success {
		t.Fatal("Expected failure for unwritable storage root")
	}
	if result.GetFirstError() == nil {
		t.Error("Expected a first error")
	}

	configErr, ok := core.IsConfigError(result.GetFirstError())
	if !ok {
		t.Fatalf("Expected ConfigError, got %v", result.GetFirstError())
	}
	if configErr.Code != core.ErrCodeStorageAccess {
		t.Errorf("Code = %q, want %q", configErr.Code, core.ErrCodeStorageAccess)
	}
}

func TestValidateCredentialsSkippedWhenDisabled(t *testing.T) {
	config := testConfig(t)
	config.UseOpenAI = false

	result := NewValidationSuite().WithShowProgress(false).Validate(config)

	step := findStep(t, result, "External Model Credentials")
	if step.Status != StepSkipped {
		t.Errorf("Status = %s, want skipped", step.Status)
	}
}

func TestValidateCredentialsWarnWithoutKey(t *testing.T) {
	config := testConfig(t)
	config.UseOpenAI = true
	config.OpenAIAPIKey = ""

	result := NewValidationSuite().WithShowProgress(false).Validate(config)

	step := findStep(t, result, "External Model Credentials")
	if step.Status != StepWarning {
		t.Errorf("Status = %s, want warning", step.Status)
	}
	// A warning never fails the suite
	if !result.Success {
		t.Error("Expected overall success despite warning")
	}
}

func TestValidateProgressOutput(t *testing.T) {
	config := testConfig(t)

	var buf bytes.Buffer
	NewValidationSuite().WithOutput(&buf).WithShowProgress(true).Validate(config)

	output := buf.String()
	if !strings.Contains(output, "Storage Root") {
		t.Errorf("Expected step names in output, got %q", output)
	}
	if !strings.Contains(output, "Validation Passed") {
		t.Errorf("Expected summary in output, got %q", output)
	}
}

func TestStepStatusString(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   string
	}{
		{StepPending, "pending"},
		{StepRunning, "running"},
		{StepPassed, "passed"},
		{StepFailed, "failed"},
		{StepWarning, "warning"},
		{StepSkipped, "skipped"},
		{StepStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func findStep(t *testing.T, result SuiteResult, name string) ValidationStep {
	t.Helper()
	for _, step := range result.Steps {
		if step.Name == name {
			return step
		}
	}
	t.Fatalf("Step %q not found", name)
	return ValidationStep{}
}
