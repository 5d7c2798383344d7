package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/specloom/loom/internal/ir"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // Path not found
	ErrCodeDecode   = "E003" // Document decode failure
	ErrCodeUnknown  = "E004" // Unknown query target
	ErrCodeStore    = "E005" // Snapshot store failure
)

// LoadError reports why a spec document could not be loaded.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDocument reads one spec document. The format follows the file
// extension: .cue, .yaml/.yml, anything else is treated as JSON.
func LoadDocument(path string) (*ir.Document, *LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return decodeCUE(path, data)
	case ".yaml", ".yml":
		return decodeYAML(path, data)
	default:
		doc, err := ir.Decode(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("parsing %s: %v", path, err)}
		}
		return doc, nil
	}
}

func decodeCUE(path string, data []byte) (*ir.Document, *LoadError) {
	value := cuecontext.New().CompileBytes(data)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("compiling %s: %v", path, err)}
	}

	var tree map[string]any
	if err := value.Decode(&tree); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("decoding %s: %v", path, err)}
	}

	doc, err := ir.FromValue(tree)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	return doc, nil
}

func decodeYAML(path string, data []byte) (*ir.Document, *LoadError) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	doc, err := ir.FromValue(tree)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	return doc, nil
}

// loadOrFail loads a document and renders the failure through the
// formatter, mapping it to a command-level exit error.
func loadOrFail(formatter *OutputFormatter, path string) (*ir.Document, error) {
	doc, loadErr := LoadDocument(path)
	if loadErr != nil {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return nil, NewExitError(ExitCommandError, loadErr.Message)
	}
	return doc, nil
}
